package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lshigami/quizhub/config"
)

// Claims is the subset of the hosted auth provider's access token we rely on.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// DisplayName picks the provider's full name, if any.
func (c *Claims) DisplayName() string {
	for _, key := range []string{"full_name", "name", "display_name"} {
		if v, ok := c.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type TokenVerifier interface {
	Verify(raw string) (*Claims, uuid.UUID, error)
}

type hmacVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(cfg *config.Config) TokenVerifier {
	return &hmacVerifier{secret: []byte(cfg.Auth.JWTSecret), issuer: cfg.Auth.JWTIssuer}
}

func (v *hmacVerifier) Verify(raw string) (*Claims, uuid.UUID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, uuid.Nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return claims, userID, nil
}
