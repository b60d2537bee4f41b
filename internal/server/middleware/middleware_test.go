package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tablesync/tablesync/internal/server/middleware"
	"github.com/tablesync/tablesync/pkg/auth"
	"github.com/tablesync/tablesync/pkg/config"
	"github.com/tablesync/tablesync/pkg/logging"
)

func TestHandshakeTokenReachesContext(t *testing.T) {
	var gotIP, gotCtx string
	h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, _ := middleware.ReqMetadataFrom(r.Context())
		gotIP = meta.IP
		gotCtx, _ = auth.HandshakeToken(r.Context())
	}),
		middleware.RequestMetadataMiddleware(),
		middleware.NewHandshakeToken(logging.Discard()),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotCtx != "abc" {
		t.Errorf("expected token abc in context, got %q", gotCtx)
	}
	if gotIP != "192.0.2.7" {
		t.Errorf("expected metadata ip 192.0.2.7, got %q", gotIP)
	}

	gotCtx = ""
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusOK || gotCtx != "" {
		t.Errorf("tokenless request should pass untouched, code=%d ctx=%q", rec.Code, gotCtx)
	}
}

func TestConnectionLimiter(t *testing.T) {
	counts := map[string]int{"192.0.2.1": 2}
	var cycled []string
	counter := func(ip string) int { return counts[ip] }
	cycler := func(ip string) { cycled = append(cycled, ip) }

	cases := []struct {
		name   string
		cfg    config.ConnectionLimitConfig
		code   int
		cycled int
	}{
		{"disabled", config.ConnectionLimitConfig{MaxPerIP: 0, Mode: "reject"}, http.StatusOK, 0},
		{"under limit", config.ConnectionLimitConfig{MaxPerIP: 3, Mode: "reject"}, http.StatusOK, 0},
		{"reject", config.ConnectionLimitConfig{MaxPerIP: 2, Mode: "reject"}, http.StatusTooManyRequests, 0},
		{"cycle", config.ConnectionLimitConfig{MaxPerIP: 2, Mode: "cycle"}, http.StatusOK, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cycled = nil
			h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
				middleware.RequestMetadataMiddleware(),
				middleware.NewConnectionLimiter(logging.Discard(), counter, cycler, tc.cfg),
			)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.RemoteAddr = "192.0.2.1:5555"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, rec.Code)
			}
			if len(cycled) != tc.cycled {
				t.Errorf("expected %d cycled, got %v", tc.cycled, cycled)
			}
		})
	}
}
