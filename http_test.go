package auth_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-campus-auth"
)

func TestRouteAuthenticatorToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	routes := auth.NewRouteAuthenticator(env.accounts.Guard(), apiTestConfig{}, auth.NopLogger{})

	app := fiber.New()
	app.Post("/token", func(c *fiber.Ctx) error {
		return c.SendString(routes.Token(c))
	})

	tests := []struct {
		name   string
		header string
		body   string
		want   string
	}{
		{name: "bearer header", header: "Bearer " + token, want: token},
		{name: "json body", body: `{"token":"` + token + `"}`, want: token},
		{name: "header wins", header: "Bearer " + token, body: `{"token":"other"}`, want: token},
		{name: "wrong scheme", header: "Basic " + token, want: ""},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestProtectedRouteStoresClaims(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	routes := auth.NewRouteAuthenticator(env.accounts.Guard(), apiTestConfig{}, auth.NopLogger{})

	app := fiber.New(fiber.Config{ErrorHandler: auth.HTTPErrorHandler(auth.NopLogger{})})
	app.Get("/me", routes.ProtectedRoute(auth.RoleAdmin), func(c *fiber.Ctx) error {
		claims, ok := auth.GetFiberClaims(c, auth.DefaultContextKey)
		if !ok {
			return fiber.ErrTeapot
		}
		return c.SendString(claims.Role().String())
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin.String(), string(body))
}

func TestHTTPErrorHandler(t *testing.T) {
	logger := new(MockLogger)
	logger.On("Error", mock.Anything, mock.Anything).Return()

	app := fiber.New(fiber.Config{ErrorHandler: auth.HTTPErrorHandler(logger)})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return assert.AnError
	})
	app.Get("/rich", func(c *fiber.Ctx) error {
		return auth.ErrDepartmentNotFound
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return goerrors.New("db down", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	})
	app.Get("/expired", func(c *fiber.Ctx) error {
		return auth.ErrTokenExpired
	})

	tests := []struct {
		path   string
		status int
		body   map[string]any
	}{
		{"/fiber", fiber.StatusTeapot, map[string]any{"error": "short and stout"}},
		{"/plain", http.StatusInternalServerError, map[string]any{"error": "Server error"}},
		{"/rich", http.StatusNotFound, map[string]any{
			"error": "department not found",
			"code":  auth.TextCodeDepartmentNotFound,
		}},
		{"/internal", http.StatusInternalServerError, map[string]any{"error": "Server error"}},
		{"/expired", http.StatusUnauthorized, map[string]any{
			"error": "Unauthorized",
			"code":  auth.TextCodeTokenExpired,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}

	logger.AssertNumberOfCalls(t, "Error", 2)
}
