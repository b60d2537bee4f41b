package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tablesync/tablesync/pkg/config"
)

// IPConnectionCounter reports how many live connections an IP holds.
type IPConnectionCounter func(ip string) int

// IPConnectionCycler closes the oldest connection of an IP.
type IPConnectionCycler func(ip string)

// NewConnectionLimiter caps concurrent connections per remote IP. In
// "reject" mode excess upgrades get 429; in "cycle" mode the oldest
// connection is closed to make room.
func NewConnectionLimiter(
	logger *slog.Logger,
	counter IPConnectionCounter,
	cycler IPConnectionCycler,
	cfg config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.MaxPerIP <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Connection limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			count := counter(reqMeta.IP)
			if count < cfg.MaxPerIP {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("IP connection limit reached", slog.String("ip", reqMeta.IP), slog.Int("count", count))
			switch cfg.Mode {
			case "cycle":
				cycler(reqMeta.IP)
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
			}
		})
	}
}
