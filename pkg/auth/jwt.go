// Package auth verifies bearer tokens issued by the identity service and
// exposes the authenticated owner id. The service never issues tokens for
// end users; NewAccessToken exists for tooling and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"staybook/pkg/logger"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingOwner = errors.New("token has no subject")
)

type Claims struct {
	jwt.RegisteredClaims
}

func NewAccessToken(ownerID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates an HS256 token and returns its owner id (the sub claim).
func Parse(tokenString, secret string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrMissingOwner
	}
	return claims.Subject, nil
}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, logger.OwnerIDKey, ownerID)
}

// OwnerFromContext returns the owner id set by the auth middleware, or "".
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(logger.OwnerIDKey).(string)
	return owner
}
