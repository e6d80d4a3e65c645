package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, "lucien@example.com", "Lucien", "Marchetti", "Luc", testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "lucien@example.com", claims.Email)
	assert.Equal(t, "Lucien", claims.FirstName)
	assert.Equal(t, "Luc", claims.Nickname)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "a@b.c", "", "", "", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateToken(1, "a@b.c", "", "", "", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := ValidateToken("not-a-token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceRoundTrip(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	token, err := svc.GenerateToken(7, "ben@example.com", "Ben", "Sharp", "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Empty(t, claims.Nickname)
}
