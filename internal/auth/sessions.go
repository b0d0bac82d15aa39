// Package auth answers the single question the dual-mode repository asks
// before every operation: is there a valid session, and whose is it.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"larder/pkg/platform/sentinel"
)

// Claims are the access-token claims issued by the auth service. Only the
// subject (user id) matters here; everything else belongs to the auth service.
type Claims struct {
	jwt.RegisteredClaims
}

type contextKeyUserID struct{}

// ContextKeyUserID is exported so transport middleware and tests can stash a
// verified user id in the request context.
var ContextKeyUserID = contextKeyUserID{}

// Sessions validates bearer tokens and resolves the current user from a
// context. It is the fast isAuthenticated probe: no network, just signature
// and expiry checks.
type Sessions struct {
	signingKey []byte
}

func NewSessions(signingKey string) *Sessions {
	return &Sessions{signingKey: []byte(signingKey)}
}

// VerifyToken parses and validates a bearer token, returning the user id.
func (s *Sessions) VerifyToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", sentinel.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: invalid token", sentinel.ErrUnauthenticated)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: invalid token", sentinel.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// CurrentUserID returns the verified user id stashed in ctx, or
// sentinel.ErrUnauthenticated when the caller has no session.
func (s *Sessions) CurrentUserID(ctx context.Context) (string, error) {
	return UserIDFromContext(ctx)
}

// IsAuthenticated is the cheap probe every repository operation runs first.
func (s *Sessions) IsAuthenticated(ctx context.Context) bool {
	_, err := UserIDFromContext(ctx)
	return err == nil
}

// WithUserID returns a context carrying a verified user id. Middleware and
// tests use this; services only ever read it back.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext extracts the verified user id from ctx.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok || userID == "" {
		return "", sentinel.ErrUnauthenticated
	}
	return userID, nil
}
