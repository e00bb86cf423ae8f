package handlers

import (
	"testing"
	"time"
)

func TestFixedWindowLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	limiter := newFixedWindowLimiter(2, time.Minute, clock)
	if limiter == nil {
		t.Fatal("expected a limiter for positive inputs")
	}

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third request in the window should be rejected")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("a different client has its own window")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("window elapsed, request should pass again")
	}
}

func TestFixedWindowLimiterDisabled(t *testing.T) {
	if limiter := newFixedWindowLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("non-positive limit should disable the limiter")
	}
	if limiter := newFixedWindowLimiter(5, 0, nil); limiter != nil {
		t.Fatal("non-positive window should disable the limiter")
	}
}
