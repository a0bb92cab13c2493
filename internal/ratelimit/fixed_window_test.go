package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestAllowEnforcesLimitPerKey(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("requests within quota were rejected")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("third request allowed with limit of 2")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("separate key shares the exhausted counter")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	if !l.Allow("10.0.0.1") {
		t.Fatalf("first request rejected")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("second request in same window allowed")
	}

	// New window slot plus expired counter.
	time.Sleep(60 * time.Millisecond)
	mr.FastForward(60 * time.Millisecond)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("request after window rollover rejected")
	}
}

func TestAllowFailsClosedWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 100, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	mr.Close()

	if l.Allow("10.0.0.1") {
		t.Fatalf("request allowed while redis unreachable")
	}
}

func TestNewRejectsBadArguments(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 5, time.Minute); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNilLimiterDenies(t *testing.T) {
	var l *FixedWindowLimiter
	if l.Allow("10.0.0.1") {
		t.Fatalf("nil limiter must deny")
	}
}
