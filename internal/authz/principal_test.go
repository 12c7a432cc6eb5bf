package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return "Bearer " + signed
}

func TestJWTExtractor(t *testing.T) {
	extractor, err := authz.NewJWTExtractor(testutils.TestSigningKey)
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		err    error
	}{
		{name: "no header", err: authz.ErrNoCredentials},
		{name: "not a bearer token", header: "Basic YWxpY2U6c2VjcmV0", err: authz.ErrNoCredentials},
		{name: "garbage", header: "Bearer abc.def", err: authz.ErrInvalidToken},
		{
			name:   "wrong key",
			header: sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "alice", "exp": expires}),
			err:    authz.ErrInvalidToken,
		},
		{
			name:   "wrong algorithm",
			header: sign(t, jwt.SigningMethodHS512, testutils.TestSigningKey, jwt.MapClaims{"sub": "alice", "exp": expires}),
			err:    authz.ErrInvalidToken,
		},
		{
			name:   "expired",
			header: sign(t, jwt.SigningMethodHS256, testutils.TestSigningKey, jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Hour).Unix()}),
			err:    authz.ErrInvalidToken,
		},
		{
			name:   "no expiry",
			header: sign(t, jwt.SigningMethodHS256, testutils.TestSigningKey, jwt.MapClaims{"sub": "alice"}),
			err:    authz.ErrInvalidToken,
		},
		{
			name:   "no subject",
			header: sign(t, jwt.SigningMethodHS256, testutils.TestSigningKey, jwt.MapClaims{"exp": expires}),
			err:    authz.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			_, err := extractor.Extract(r)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("Should read the principal claims", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", testutils.BearerToken(t, "alice", true))

		principal, err := extractor.Extract(r)
		require.NoError(t, err)

		assert.Equal(t, "alice", principal.UserID)
		assert.Equal(t, "alice@hub.test", principal.Email)
		assert.True(t, principal.IsSuperuser)
	})

	t.Run("Should need a key", func(t *testing.T) {
		_, err := authz.NewJWTExtractor(nil)
		assert.ErrorIs(t, err, authz.ErrEmptySigningKey)
	})
}
