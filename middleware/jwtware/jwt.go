package jwtware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator interface for validating tokens without import cycles
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies TokenValidator
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrJWTMissingOrMalformed
	}
	return f(tokenString)
}

// AuthClaims is the subset of the verified claims the middleware needs
type AuthClaims interface {
	Subject() string
	UserID() string
}

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(c *fiber.Ctx, claims AuthClaims) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	ContextKey     string
	// TokenLookup is a comma separated list of sources:
	// header:Authorization,body:token,query:token,param:token,cookie:jwt
	TokenLookup string
	AuthScheme  string
	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// Authorizer runs after validation. A non nil error rejects the request.
	Authorizer func(AuthClaims) error

	// ContextEnricher is an optional function to propagate claims to the standard
	// Go context.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	ValidationListeners []ValidationListener
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.runValidationListeners(c, claims); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if cfg.Authorizer != nil {
			if err := cfg.Authorizer(claims); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		c.Locals(cfg.ContextKey, claims)
		c.Locals(cfg.ContextKey+"_token", raw)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return cfg.SuccessHandler(c)
	}
}

// ExtractRawToken returns the first token found by extractors
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,body:token,cookie:jwt
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "body":
			extractors = append(extractors, jwtFromBody(parts[1]))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromBody returns a function that extracts token from a JSON or form body field.
func jwtFromBody(field string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		body := c.Body()
		if len(body) == 0 {
			return "", ErrJWTMissingOrMalformed
		}

		if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
			payload := map[string]any{}
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", ErrJWTMissingOrMalformed
			}
			if token, ok := payload[field].(string); ok && strings.TrimSpace(token) != "" {
				return strings.TrimSpace(token), nil
			}
			return "", ErrJWTMissingOrMalformed
		}

		if token := c.FormValue(field); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
