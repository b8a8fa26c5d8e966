package jwtware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-campus-auth/middleware/jwtware"
)

type testClaims struct {
	sub  string
	role string
}

func (c testClaims) Subject() string { return c.sub }
func (c testClaims) UserID() string  { return c.sub }

var errBadToken = errors.New("bad token")

func validator() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		switch token {
		case "admin-token":
			return testClaims{sub: "admin-1", role: "ADMIN"}, nil
		case "teacher-token":
			return testClaims{sub: "teacher-1", role: "TEACHER"}, nil
		default:
			return nil, errBadToken
		}
	})
}

func adminOnly(claims jwtware.AuthClaims) error {
	c, ok := claims.(testClaims)
	if !ok || c.role != "ADMIN" {
		return errors.New("forbidden")
	}
	return nil
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.All("/protected", func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(jwtware.AuthClaims)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(claims.UserID())
	})
	return app
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: validator()})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer admin-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin-1", readBody(t, resp))
}

func TestJWTWare_MissingAndInvalidTokensAreUnauthorized(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: validator()})

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic admin-token",
		"no separator": "Beareradmin-token",
		"invalid":      "Bearer nope",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), "Unauthorized")
		})
	}
}

func TestJWTWare_BodyExtraction(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		TokenLookup:    "header:Authorization,body:token",
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", strings.NewReader(`{"token":"teacher-token","name":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "teacher-1", readBody(t, resp))
}

func TestJWTWare_HeaderWinsOverBody(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		TokenLookup:    "header:Authorization,body:token",
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", strings.NewReader(`{"token":"teacher-token"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer admin-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", readBody(t, resp))
}

func TestJWTWare_QueryAndCookieExtraction(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		TokenLookup:    "query:token,cookie:jwt",
	})

	req := httptest.NewRequest(http.MethodGet, "/protected?token=admin-token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "teacher-token"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", readBody(t, resp))
}

func TestJWTWare_AuthorizerRejectsWrongRole(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		Authorizer:     adminOnly,
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTWare_FilterSkipsValidation(t *testing.T) {
	app := fiber.New()
	app.Use(jwtware.New(jwtware.Config{
		TokenValidator: validator(),
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/public"
		},
	}))
	app.Get("/public", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTWare_ValidationListenerCanReject(t *testing.T) {
	var seen []string
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, claims jwtware.AuthClaims) error {
				seen = append(seen, claims.UserID())
				if claims.UserID() == "teacher-1" {
					return errors.New("blocked")
				}
				return nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{"teacher-1"}, seen)
}

func TestJWTWare_CustomErrorHandler(t *testing.T) {
	var got error
	app := newApp(jwtware.Config{
		TokenValidator: validator(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			got = err
			return c.SendStatus(fiber.StatusTeapot)
		},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.ErrorIs(t, got, jwtware.ErrJWTMissingOrMalformed)
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})

	cfg := jwtware.GetDefaultConfig(jwtware.Config{TokenValidator: validator()})
	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, "header:Authorization", cfg.TokenLookup)
}

func TestGetExtractorsSkipsUnknownSources(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, body:token, bogus, nope:x", "Bearer")
	assert.Len(t, extractors, 2)
}
