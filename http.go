package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-campus-auth/middleware/jwtware"
)

// DefaultTokenLookup reads the bearer header first and the JSON body second
const DefaultTokenLookup = "header:Authorization,body:token"

// RouteAuthenticator builds the JWT middleware and token extraction shared by
// every HTTP entry point, so all of them verify through the same Guard.
type RouteAuthenticator struct {
	guard      *Guard
	contextKey string
	extractors []jwtware.JWTExtractor
	tokenLook  string
	authScheme string
	logger     Logger
}

// NewRouteAuthenticator creates the authenticator from cfg
func NewRouteAuthenticator(guard *Guard, cfg Config, logger Logger) *RouteAuthenticator {
	if logger == nil {
		logger = defLogger{}
	}

	lookup := DefaultTokenLookup
	scheme := "Bearer"
	contextKey := DefaultContextKey
	if cfg != nil {
		if v := strings.TrimSpace(cfg.GetTokenLookup()); v != "" {
			lookup = v
		}
		if v := strings.TrimSpace(cfg.GetAuthScheme()); v != "" {
			scheme = v
		}
		if v := strings.TrimSpace(cfg.GetContextKey()); v != "" {
			contextKey = v
		}
	}

	return &RouteAuthenticator{
		guard:      guard,
		contextKey: contextKey,
		extractors: jwtware.GetExtractors(lookup, scheme),
		tokenLook:  lookup,
		authScheme: scheme,
		logger:     logger,
	}
}

// ProtectedRoute rejects requests whose token does not verify or whose role
// is outside roles. With no roles only verification is enforced.
func (a *RouteAuthenticator) ProtectedRoute(roles ...UserRole) fiber.Handler {
	cfg := jwtware.Config{
		ContextKey:  a.contextKey,
		TokenLookup: a.tokenLook,
		AuthScheme:  a.authScheme,
		TokenValidator: jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
			claims, err := a.guard.Verify(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ErrorHandler: a.defaultAuthErrHandler,
	}

	if len(roles) > 0 {
		cfg.Authorizer = func(claims jwtware.AuthClaims) error {
			authClaims, ok := claims.(AuthClaims)
			if !ok {
				return ErrUnauthorized
			}
			return Authorize(authClaims, roles...)
		}
	}

	return jwtware.New(cfg)
}

// Token returns the raw token from the request, empty when none is present
func (a *RouteAuthenticator) Token(c *fiber.Ctx) string {
	if raw := GetFiberToken(c, a.contextKey); raw != "" {
		return raw
	}
	raw, err := jwtware.ExtractRawToken(c, a.extractors)
	if err != nil {
		return ""
	}
	return raw
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c *fiber.Ctx, err error) error {
	a.logger.Debug("route auth rejected %s %s: %v", c.Method(), c.Path(), err)
	return writeError(c, ErrUnauthorized)
}

// HTTPErrorHandler renders rich errors as JSON. Internal failures are logged
// and answered with a generic message.
func HTTPErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
			})
		}

		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.Code == 0 || richErr.Code >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %v", c.Method(), c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server error",
			})
		}

		return writeError(c, richErr)
	}
}

func writeError(c *fiber.Ctx, richErr *goerrors.Error) error {
	message := richErr.Message
	switch richErr.TextCode {
	case TextCodeUnauthorized, TextCodeTokenExpired, TextCodeTokenMalformed, TextCodeTokenInvalidSignature:
		message = "Unauthorized"
	case TextCodeForbidden:
		message = "Forbidden"
	}

	body := fiber.Map{
		"error": message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if fields := richErr.ValidationMap(); len(fields) > 0 {
		body["validation"] = fields
	}

	return c.Status(richErr.Code).JSON(body)
}
