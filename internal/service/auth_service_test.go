package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims StaffClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService("secret")
	signed := signToken(t, "secret", StaffClaims{
		Email: "staff@codeyourfuture.io",
		Role:  "mentor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "staff@codeyourfuture.io", claims.Email)
	assert.Equal(t, "mentor", claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService("secret")
	signed := signToken(t, "other", StaffClaims{Email: "staff@codeyourfuture.io"})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService("secret")
	signed := signToken(t, "secret", StaffClaims{
		Email: "staff@codeyourfuture.io",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewAuthService("secret")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}
