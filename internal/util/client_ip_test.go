package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPWithoutTrustedProxies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:4455"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := ClientIP(r, nil); got != "203.0.113.7" {
		t.Fatalf("got %q, want peer address (forwarded header untrusted)", got)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:9000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.9.9.9")

	if got := ClientIP(r, trusted); got != "198.51.100.1" {
		t.Fatalf("got %q, want rightmost untrusted hop", got)
	}
}

func TestClientIPRealIPFallback(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.1.2.3"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:9000"
	r.Header.Set("X-Real-IP", "198.51.100.7")

	if got := ClientIP(r, trusted); got != "198.51.100.7" {
		t.Fatalf("got %q, want X-Real-IP value", got)
	}
}

func TestClientIPAllHopsTrusted(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:9000"
	r.Header.Set("X-Forwarded-For", "10.5.5.5")

	if got := ClientIP(r, trusted); got != "10.5.5.5" {
		t.Fatalf("got %q, want leftmost hop when chain fully trusted", got)
	}
}

func TestNewTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatalf("expected error for invalid entry")
	}
}

func TestNewTrustedProxiesEmptyMeansNone(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"", "  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trusted != nil {
		t.Fatalf("blank entries should produce nil allowlist")
	}
}
