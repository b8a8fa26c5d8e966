package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-campus-auth"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestNewTokenServiceDefaults(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 0, "campus", nil)
	assert.Equal(t, time.Duration(auth.DefaultTokenExpiration)*time.Hour, ts.TTL())
	assert.Equal(t, 7*24*time.Hour, ts.TTL())
}

func TestTokenServiceRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ts := auth.NewTokenService([]byte(testSigningKey), 168, "campus", nil,
		auth.WithTokenClock(fixedClock(now)),
	)

	for _, role := range auth.GetAllRoles() {
		t.Run(role.String(), func(t *testing.T) {
			token, err := ts.Issue("user-42", role)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := ts.Validate(token)
			require.NoError(t, err)

			assert.Equal(t, "user-42", claims.UserID())
			assert.Equal(t, "user-42", claims.Subject())
			assert.Equal(t, role, claims.Role())
			assert.True(t, claims.HasRole(role))
			assert.Equal(t, now.Unix(), claims.IssuedAt().Unix())
			assert.Equal(t, now.Add(168*time.Hour).Unix(), claims.Expires().Unix())
		})
	}
}

func TestTokenServiceIssueRejectsBadInput(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)

	_, err := ts.Issue("user-1", auth.UserRole("SUPERUSER"))
	assert.True(t, errors.Is(err, auth.ErrInvalidRole))

	_, err = ts.Issue("  ", auth.RoleAdmin)
	assert.Error(t, err)
}

func TestTokenServiceIssueWithoutKey(t *testing.T) {
	ts := auth.NewTokenService(nil, 1, "campus", nil)

	_, err := ts.Issue("user-1", auth.RoleAdmin)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryInternal, richErr.Category)
}

func TestTokenServiceExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer := auth.NewTokenService([]byte(testSigningKey), 168, "campus", nil,
		auth.WithTokenClock(fixedClock(issuedAt)),
	)

	token, err := issuer.Issue("user-1", auth.RoleTeacher)
	require.NoError(t, err)

	justBefore := auth.NewTokenService([]byte(testSigningKey), 168, "campus", nil,
		auth.WithTokenClock(fixedClock(issuedAt.Add(168*time.Hour-time.Second))),
	)
	_, err = justBefore.Validate(token)
	require.NoError(t, err)

	after := auth.NewTokenService([]byte(testSigningKey), 168, "campus", nil,
		auth.WithTokenClock(fixedClock(issuedAt.Add(168*time.Hour+time.Second))),
	)
	_, err = after.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenServiceValidateFailures(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)
	other := auth.NewTokenService([]byte("another-signing-key-0123456789"), 1, "campus", nil)

	foreign, err := other.Issue("user-1", auth.RoleAdmin)
	require.NoError(t, err)

	otherIssuer := auth.NewTokenService([]byte(testSigningKey), 1, "somebody-else", nil)
	wrongIssuer, err := otherIssuer.Issue("user-1", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  *errors.Error
	}{
		{name: "empty", token: "", want: auth.ErrTokenMalformed},
		{name: "garbage", token: "not-a-token", want: auth.ErrTokenMalformed},
		{name: "two segments", token: "abc.def", want: auth.ErrTokenMalformed},
		{name: "foreign key", token: foreign, want: auth.ErrTokenInvalidSignature},
		{name: "wrong issuer", token: wrongIssuer, want: auth.ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.Validate(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTokenServiceRejectsUnknownRole(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)
	now := time.Now()

	token, err := ts.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:      "user-1",
		UserRole: "admin",
	})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceRejectsMissingID(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)
	now := time.Now()

	token, err := ts.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserRole: string(auth.RoleAdmin),
	})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.True(t, errors.Is(err, auth.ErrTokenMalformed))
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)
	now := time.Now()

	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:      "user-1",
		UserRole: string(auth.RoleAdmin),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{"HS512": hs512, "none": unsigned} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Validate(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrTokenMalformed), "got %v", err)
		})
	}
}

func TestTokenServiceRequiresExpiry(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "campus", nil)

	token, err := ts.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  "campus",
			Subject: "user-1",
		},
		UID:      "user-1",
		UserRole: string(auth.RoleAdmin),
	})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.Error(t, err)
}

func TestTokenServiceAudience(t *testing.T) {
	web := auth.NewTokenService([]byte(testSigningKey), 1, "campus", []string{"campus-web", "campus-mobile"})
	mobile := auth.NewTokenService([]byte(testSigningKey), 1, "campus", []string{"campus-mobile"})
	other := auth.NewTokenService([]byte(testSigningKey), 1, "campus", []string{"library"})

	token, err := web.Issue("user-1", auth.RoleTeacher)
	require.NoError(t, err)

	_, err = web.Validate(token)
	assert.NoError(t, err)

	_, err = mobile.Validate(token)
	assert.NoError(t, err, "one shared audience is enough")

	_, err = other.Validate(token)
	assert.True(t, errors.Is(err, auth.ErrTokenMalformed), "got %v", err)
}
