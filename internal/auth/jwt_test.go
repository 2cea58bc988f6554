package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"recurse.com/niceties/internal/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	token, err := GenerateJWT(770)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	personID, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(770), personID)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	token, err := GenerateJWT(770)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "different-secret"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
