package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeSessionStore struct {
	keys map[string]time.Duration
}

func (f *fakeSessionStore) Set(_ context.Context, key string, _ any, ttl time.Duration) error {
	f.keys[key] = ttl
	return nil
}

func (f *fakeSessionStore) CartSessionKey(session string) string {
	return "cart_session:" + session
}

func TestCartSessionGeneratesAndEchoesKey(t *testing.T) {
	store := &fakeSessionStore{keys: map[string]time.Duration{}}
	var seen string
	handler := CartSession(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionKeyFromContext(r.Context())
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if seen == "" {
		t.Fatal("expected generated session key in context")
	}
	if got := resp.Header().Get(SessionKeyHeader); got != seen {
		t.Fatalf("expected header %q, got %q", seen, got)
	}
	if ttl, ok := store.keys["cart_session:"+seen]; !ok || ttl != time.Hour {
		t.Fatalf("expected generated session recorded with ttl, got %v", store.keys)
	}
}

func TestCartSessionKeepsClientKey(t *testing.T) {
	store := &fakeSessionStore{keys: map[string]time.Duration{}}
	var seen string
	handler := CartSession(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionKeyFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionKeyHeader, " existing-key ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen != "existing-key" || resp.Header().Get(SessionKeyHeader) != "existing-key" {
		t.Fatalf("expected client key preserved, got %q", seen)
	}
	if len(store.keys) != 0 {
		t.Fatalf("existing keys are not re-recorded, got %v", store.keys)
	}

	oversized := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	oversized.Header.Set(SessionKeyHeader, strings.Repeat("x", maxSessionKeyLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), oversized)
	if len(seen) == maxSessionKeyLength+1 {
		t.Fatal("oversized key should be replaced")
	}
}
