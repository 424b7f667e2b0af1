package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndValidateJWT(t *testing.T) {
	token, err := BuildJWT("test-secret", 42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateJWT("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := BuildJWT("test-secret", 42, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT("other-secret", token)
	assert.Error(t, err)
}

func TestValidateJWTExpired(t *testing.T) {
	token, err := BuildJWT("test-secret", 42, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT("test-secret", token)
	assert.Error(t, err)
}

func TestValidateJWTGarbage(t *testing.T) {
	_, err := ValidateJWT("test-secret", "not-a-token")
	assert.Error(t, err)
}
