package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tablesync/tablesync/pkg/auth"
)

// NewHandshakeToken carries a session token found on the upgrade request into
// the request context. Requests without a token pass through;
// authentication happens when the client joins a room.
func NewHandshakeToken(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.ExtractToken(r.Header, r.URL.Query())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if reqMeta, found := ReqMetadataFrom(r.Context()); found {
				logger.Debug("Handshake carries a session token", slog.String("ip", reqMeta.IP))
			}
			next.ServeHTTP(w, r.WithContext(auth.WithHandshakeToken(r.Context(), token)))
		})
	}
}
