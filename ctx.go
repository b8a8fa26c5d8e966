package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is where the JWT middleware stores verified claims
const DefaultContextKey = "user"

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetFiberClaims extracts the AuthClaims stored by the JWT middleware
func GetFiberClaims(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// GetFiberToken returns the raw token stored by the JWT middleware
func GetFiberToken(c *fiber.Ctx, key string) string {
	if key == "" {
		key = DefaultContextKey
	}
	raw, _ := c.Locals(key + "_token").(string)
	return raw
}
