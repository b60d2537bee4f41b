package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type window struct {
	start    time.Time
	requests int
}

// RateLimiter counts frames per connection in fixed windows.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[uuid.UUID]*window
}

// ParseRate reads a limit of the form "<count>/<s|m|h>", e.g. "30/s".
func ParseRate(rate string) (int, time.Duration, error) {
	count, unit, ok := strings.Cut(rate, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid rate limit format: %s", rate)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || limit <= 0 {
		return 0, 0, fmt.Errorf("invalid rate limit count: %s", count)
	}

	var period time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "s":
		period = time.Second
	case "m":
		period = time.Minute
	case "h":
		period = time.Hour
	default:
		return 0, 0, fmt.Errorf("invalid rate limit duration unit: %s", unit)
	}
	return limit, period, nil
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[uuid.UUID]*window),
	}
}

// Allow records one frame for id and reports whether it is within the limit.
func (l *RateLimiter) Allow(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[id] = &window{start: now, requests: 1}
		return true
	}
	if w.requests < l.limit {
		w.requests++
		return true
	}
	return false
}

// Forget drops the window of a closed connection.
func (l *RateLimiter) Forget(id uuid.UUID) {
	l.mu.Lock()
	delete(l.windows, id)
	l.mu.Unlock()
}
