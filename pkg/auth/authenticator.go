package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tablesync/tablesync/pkg/store"
)

// Identity is the user a session token resolves to.
type Identity struct {
	UserID   string
	Username string
}

// Authenticator validates opaque session tokens.
type Authenticator struct {
	sessions store.Sessions
	users    store.Users
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Authenticator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func NewAuthenticator(logger *slog.Logger, sessions store.Sessions, users store.Users, opts ...Option) *Authenticator {
	a := &Authenticator{
		sessions: sessions,
		users:    users,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "authenticator")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Validate resolves token to an identity. Unknown, expired and orphaned
// sessions all yield false, and so does any store failure: callers only ever
// learn that the session is invalid.
func (a *Authenticator) Validate(ctx context.Context, token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}

	sess, err := a.sessions.LookupSession(ctx, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("Session lookup failed", slog.Any("error", err))
		}
		return Identity{}, false
	}
	if !sess.ExpiresAt.After(a.now()) {
		a.logger.Debug("Session expired", slog.String("userID", sess.UserID))
		return Identity{}, false
	}

	user, err := a.users.LookupUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("Session refers to missing user", slog.String("userID", sess.UserID))
		} else {
			a.logger.Error("User lookup failed", slog.String("userID", sess.UserID), slog.Any("error", err))
		}
		return Identity{}, false
	}
	return Identity{UserID: user.ID, Username: user.Username}, true
}
