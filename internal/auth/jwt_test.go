package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken(42, "alice@example.com", "alice")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "alice", claims.Nickname)
	require.Equal(t, "42", claims.Subject)
}

func TestJWT_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken(42, "alice@example.com", "alice")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := m.GenerateAccessToken(42, "alice@example.com", "alice")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Garbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	_, err := m.ValidateAccessToken("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
