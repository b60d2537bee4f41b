package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tablesync/tablesync/pkg/store"
)

// SessionClaims is the body of a session token issued by JWTSessions. The
// JWT ID doubles as the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTSessions is a store.Sessions backed by HMAC signed tokens instead of a
// session table. The token carries the session record itself.
type JWTSessions struct {
	secret []byte
	now    func() time.Time
}

var _ store.Sessions = (*JWTSessions)(nil)

func NewJWTSessions(secret string) (*JWTSessions, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &JWTSessions{secret: []byte(secret), now: time.Now}, nil
}

// Issue mints a session token for userID valid for ttl.
func (j *JWTSessions) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := j.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// LookupSession verifies the token signature and returns the session it
// describes. Expiry is reported, not enforced; the authenticator decides.
func (j *JWTSessions) LookupSession(_ context.Context, tokenString string) (*store.Session, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("session token rejected: %w", store.ErrNotFound)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("session token missing sub or exp: %w", store.ErrNotFound)
	}
	return &store.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
