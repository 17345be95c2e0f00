package services

import (
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestResolveUserFromBearerToken(t *testing.T) {
	resolver := NewIdentityResolver(testSecret)
	req := httptest.NewRequest("GET", "/ws/rooms/lobby", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
		"user_id": float64(42),
		"alias":   "paddler",
	}))

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user:42", identity.Key)
	require.NotNil(t, identity.UserID)
	assert.Equal(t, 42, *identity.UserID)
	assert.Equal(t, "paddler", identity.Alias)
}

func TestResolveTokenFromQueryParam(t *testing.T) {
	resolver := NewIdentityResolver(testSecret)
	token := signedToken(t, jwt.MapClaims{"user_id": float64(7)})
	req := httptest.NewRequest("GET", "/ws/rooms/lobby?token="+token, nil)

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user:7", identity.Key)
}

func TestResolveGuestFallback(t *testing.T) {
	resolver := NewIdentityResolver(testSecret)

	req := httptest.NewRequest("GET", "/ws/rooms/lobby?guest=ava", nil)
	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "guest:ava", identity.Key)
	assert.Equal(t, "ava", identity.Alias)
	assert.Nil(t, identity.UserID)

	// Without an alias one is generated, so the identity is still stable
	// within the connection.
	req = httptest.NewRequest("GET", "/ws/rooms/lobby", nil)
	identity, err = resolver.Resolve(req)
	require.NoError(t, err)
	assert.NotEmpty(t, identity.Alias)
	assert.Equal(t, "guest:"+identity.Alias, identity.Key)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	resolver := NewIdentityResolver(testSecret)

	req := httptest.NewRequest("GET", "/ws/rooms/lobby", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// Wrong signing key.
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": float64(1)})
	signed, signErr := other.SignedString([]byte("other-secret"))
	require.NoError(t, signErr)
	req = httptest.NewRequest("GET", "/ws/rooms/lobby", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	_, err = resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// Valid signature, missing user claim.
	req = httptest.NewRequest("GET", "/ws/rooms/lobby", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{"role": "player"}))
	_, err = resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
