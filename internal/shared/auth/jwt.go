// Package auth validates the marketplace's JWT access tokens and exposes the
// echo middleware that scopes notification routes to the authenticated user.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the marketplace token claims. Subject carries the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator validates a raw token string.
type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

// JWTValidator validates HS256 tokens signed with the marketplace secret.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if exp := claims.ExpiresAt; exp != nil && !exp.Time.After(v.now()) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return claims, nil
}

var _ TokenValidator = (*JWTValidator)(nil)
