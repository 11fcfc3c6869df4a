package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates the service tokens used by the ops
// endpoints (sync triggers, metrics).
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateServiceToken generates a JWT for the named caller.
func (s *TokenService) GenerateServiceToken(service string) (string, error) {
	claims := jwt.MapClaims{
		"service": service,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateServiceToken validates a JWT and returns the caller name.
func (s *TokenService) ValidateServiceToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		service, ok := claims["service"].(string)
		if !ok {
			return "", fmt.Errorf("service not found in token")
		}
		return service, nil
	}
	return "", fmt.Errorf("invalid token")
}
