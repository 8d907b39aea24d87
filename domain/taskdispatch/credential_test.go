package taskdispatch

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestApiKeyRecord_ExpiryCheck(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	rec := apiKeyRecord{Active: true, ExpiresAt: &past}
	require.True(t, rec.ExpiresAt.Before(time.Now()))
}

func TestJWTEnvelope_ParseUnverifiedExtractsExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "user-1",
	})
	signed, err := token.SignedString([]byte("unused-in-this-test"))
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, _, err = parser.ParseUnverified(signed, claims)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
}
