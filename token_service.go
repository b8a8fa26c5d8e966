package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenExpiration is the token lifetime in hours (7 days)
const DefaultTokenExpiration = 24 * 7

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	now             func() time.Time
	logger          Logger
}

// TokenServiceOption customizes the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the default logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, opts ...TokenServiceOption) *TokenServiceImpl {
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	ts := &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		now:             time.Now,
		logger:          defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// NewTokenServiceFromConfig builds the service from a Config
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		opts...,
	)
}

// TTL returns the configured token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return time.Duration(ts.tokenExpiration) * time.Hour
}

// Issue creates a signed token binding userID to role
func (ts *TokenServiceImpl) Issue(userID string, role UserRole) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required", errors.CategoryInternal)
	}

	if !role.IsValid() {
		return "", ErrInvalidRole
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   userID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.TTL())),
		},
		UID:      userID,
		UserRole: string(role),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if len(ts.signingKey) == 0 {
		return "", errors.New("signing key is not configured", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// It never touches storage.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMalformed
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		// only HS256 is accepted, anything else is reported as malformed
		if t.Method != jwt.SigningMethodHS256 {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalidSignature
		default:
			return nil, withMetadata(ErrTokenMalformed, map[string]any{
				"reason": err.Error(),
			})
		}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.UserID() == "" {
		return nil, withMetadata(ErrTokenMalformed, map[string]any{
			"reason": "missing user id",
		})
	}

	if !claims.Role().IsValid() {
		return nil, withMetadata(ErrTokenMalformed, map[string]any{
			"reason": "invalid role",
			"role":   claims.UserRole,
		})
	}

	return claims, nil
}
