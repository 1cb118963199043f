package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

// StaffClaims are the claims carried by externally issued staff tokens.
// This service only validates tokens; issuing them is someone else's job.
type StaffClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthService validates staff bearer tokens.
type AuthService struct {
	secret []byte
}

// NewAuthService constructs an AuthService with the shared HMAC secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken parses and verifies an HS256 signed token.
func (s *AuthService) ValidateToken(token string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}
