package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the verified identity carried by a token
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() UserRole
	HasRole(roles ...UserRole) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"id,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() UserRole {
	return UserRole(c.UserRole)
}

// HasRole checks if the claims role is one of roles
func (c *JWTClaims) HasRole(roles ...UserRole) bool {
	return c.Role().IsValid() && c.Role().In(roles...)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
