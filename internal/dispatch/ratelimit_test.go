package dispatch

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseRate(t *testing.T) {
	cases := []struct {
		in     string
		limit  int
		period time.Duration
		ok     bool
	}{
		{"10/s", 10, time.Second, true},
		{"5/M", 5, time.Minute, true},
		{" 100 / h ", 100, time.Hour, true},
		{"10", 0, 0, false},
		{"x/s", 0, 0, false},
		{"0/s", 0, 0, false},
		{"10/d", 0, 0, false},
	}
	for _, tc := range cases {
		limit, period, err := ParseRate(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseRate(%q) error = %v", tc.in, err)
			continue
		}
		if tc.ok && (limit != tc.limit || period != tc.period) {
			t.Errorf("ParseRate(%q) = %d, %v", tc.in, limit, period)
		}
	}
}

func TestRateLimiterWindows(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewRateLimiter(2, time.Second)
	l.now = func() time.Time { return now }
	a, b := uuid.New(), uuid.New()

	if !l.Allow(a) || !l.Allow(a) {
		t.Fatal("first two frames should pass")
	}
	if l.Allow(a) {
		t.Error("third frame in window should be rejected")
	}
	if !l.Allow(b) {
		t.Error("limits are per connection")
	}

	now = now.Add(time.Second)
	if !l.Allow(a) {
		t.Error("new window should reset the budget")
	}

	l.Forget(a)
	if _, ok := l.windows[a]; ok {
		t.Error("Forget should drop the window")
	}
}
