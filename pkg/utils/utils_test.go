package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessAndRefreshTokens(t *testing.T) {
	InitJWT("test-secret", time.Minute, time.Hour)

	access, err := GenerateAccessToken(42, "anna@example.se", "user")
	require.NoError(t, err)
	refresh, err := GenerateRefreshToken(42)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, err = ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	rc, err := ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rc.UserID)

	_, err = ValidateToken(access + "x")
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	InitJWT("test-secret", time.Nanosecond, time.Hour)
	defer InitJWT("", 15*time.Minute, 0)

	token, err := GenerateAccessToken(1, "a@b.se", "user")
	require.NoError(t, err)
	time.Sleep(time.Second)
	_, err = ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestRegistrationValidators(t *testing.T) {
	assert.True(t, IsValidEmail("Anna.Svensson@Example.se"))
	assert.True(t, IsValidEmail("x@gym.fitness"))
	assert.False(t, IsValidEmail("anna@"))

	assert.True(t, IsStrongPassword("traning123", 8))
	assert.False(t, IsStrongPassword("traningen", 8))
	assert.False(t, IsStrongPassword("abc1", 8))

	assert.True(t, IsValidPhone("+46 70-123 45 67"))
	assert.True(t, IsValidPhone("0701234567"))
	assert.False(t, IsValidPhone("070abc"))
	assert.False(t, IsValidPhone("123"))

	assert.True(t, IsValidPostalCode("114 55"))
	assert.True(t, IsValidPostalCode("11455"))
	assert.False(t, IsValidPostalCode("1145"))
	assert.Equal(t, "114 55", NormalizePostalCode("11455"))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "drottninggatan 5 stockholm", NormalizeQuery("  Drottninggatan   5  STOCKHOLM "))
}
