package auth

import "strings"

// Guard gates privileged operations behind a required role set. It trusts the
// verified claims and never reads the store.
type Guard struct {
	validator TokenValidator
	logger    Logger
}

// NewGuard returns a guard that verifies tokens with validator
func NewGuard(validator TokenValidator, logger Logger) *Guard {
	if validator == nil {
		panic("auth: guard requires a TokenValidator")
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &Guard{
		validator: validator,
		logger:    logger,
	}
}

// Authorize allows the call iff the claims role is one of roles. Nil claims and
// an empty role set are always denied.
func Authorize(claims AuthClaims, roles ...UserRole) error {
	if claims == nil || len(roles) == 0 {
		return ErrUnauthorized
	}
	if !claims.HasRole(roles...) {
		return ErrUnauthorized
	}
	return nil
}

// Verify checks the token without any role requirement. The verification error
// is returned as is.
func (g *Guard) Verify(token string) (AuthClaims, error) {
	return g.validator.Validate(strings.TrimSpace(token))
}

// Require verifies token and checks the role set. Every failure collapses to
// ErrUnauthorized.
func (g *Guard) Require(token string, roles ...UserRole) (AuthClaims, error) {
	claims, err := g.Verify(token)
	if err != nil {
		g.logger.Debug("guard rejected token: %v", err)
		return nil, ErrUnauthorized
	}

	if err := Authorize(claims, roles...); err != nil {
		g.logger.Debug("guard rejected role %s for user %s", claims.Role(), claims.UserID())
		return nil, err
	}

	return claims, nil
}
