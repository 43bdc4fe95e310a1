package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memoryReplayStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryReplayStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryReplayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key], _ = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryReplayStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

// countingHandler records how many times the wrapped handler actually ran.
type countingHandler struct {
	runs   int
	status int
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c.runs++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c.status)
	_, _ = w.Write([]byte(`{"run":` + strconv.Itoa(c.runs) + `}`))
}

func routedRequest(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{path}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouteTTL(t *testing.T) {
	cases := map[string]struct {
		method, pattern string
		ttl             time.Duration
		covered         bool
	}{
		"checkout":      {http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		"register":      {http.MethodPost, "/api/v1/auth/register", defaultIdempotencyTTL, true},
		"admin product": {http.MethodPost, "/api/admin/v1/products", defaultIdempotencyTTL, true},
		"cart items":    {http.MethodPost, "/api/v1/cart/items", 0, false},
		"get checkout":  {http.MethodGet, "/api/v1/checkout", 0, false},
		"login":         {http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ttl, covered := routeTTL(tc.method, tc.pattern)
			assert.Equal(t, tc.covered, covered)
			assert.Equal(t, tc.ttl, ttl)
		})
	}
}

func TestIdempotencyWithoutKeyAlwaysRuns(t *testing.T) {
	store := newMemoryReplayStore()
	inner := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, nil)(inner)

	for range 2 {
		rec := serve(h, routedRequest("/api/v1/checkout", "", `{"a":1}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, inner.runs)
	assert.Empty(t, store.values)
}

func TestIdempotencyNilStoreRuns(t *testing.T) {
	inner := &countingHandler{status: http.StatusOK}
	h := Idempotency(nil, nil)(inner)
	serve(h, routedRequest("/api/v1/checkout", "k", `{}`))
	serve(h, routedRequest("/api/v1/checkout", "k", `{}`))
	assert.Equal(t, 2, inner.runs)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplayStore()
	inner := &countingHandler{status: http.StatusAccepted}
	h := Idempotency(store, nil)(inner)

	first := serve(h, routedRequest("/api/v1/auth/register", "abc", `{"email":"a@b.c"}`))
	second := serve(h, routedRequest("/api/v1/auth/register", "abc", `{"email":"a@b.c"}`))

	assert.Equal(t, 1, inner.runs)
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	for _, ttl := range store.ttls {
		assert.Equal(t, defaultIdempotencyTTL, ttl)
	}
}

// flakyCheckout fails its first run with a rolled back transaction.
type flakyCheckout struct {
	runs int
}

func (f *flakyCheckout) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.runs++
	if f.runs == 1 {
		responses.WriteResult(r.Context(), nil, w, nil, pkgerrors.New(pkgerrors.CodeTransactionAborted, "checkout rolled back"))
		return
	}
	responses.WriteResult(r.Context(), nil, w, map[string]string{"order": "o-1"}, nil)
}

func TestIdempotencyDoesNotReplayRetryableFailures(t *testing.T) {
	store := newMemoryReplayStore()
	inner := &flakyCheckout{}
	h := Idempotency(store, nil)(inner)

	first := serve(h, routedRequest("/api/v1/checkout", "k1", `{"panier":"c"}`))
	assert.Contains(t, first.Body.String(), string(pkgerrors.CodeTransactionAborted))
	assert.Empty(t, store.values)

	second := serve(h, routedRequest("/api/v1/checkout", "k1", `{"panier":"c"}`))
	third := serve(h, routedRequest("/api/v1/checkout", "k1", `{"panier":"c"}`))

	assert.Equal(t, 2, inner.runs)
	assert.Contains(t, second.Body.String(), `"success":true`)
	assert.Equal(t, second.Body.String(), third.Body.String())
	for _, ttl := range store.ttls {
		assert.Equal(t, criticalIdempotencyTTL, ttl)
	}
}

func TestIdempotencyReplaysFinalFailures(t *testing.T) {
	store := newMemoryReplayStore()
	runs := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runs++
		responses.WriteResult(r.Context(), nil, w, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
	}))

	serve(h, routedRequest("/api/v1/checkout", "k2", `{}`))
	serve(h, routedRequest("/api/v1/checkout", "k2", `{}`))
	assert.Equal(t, 1, runs)
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := newMemoryReplayStore()
	inner := &countingHandler{status: http.StatusInternalServerError}
	h := Idempotency(store, nil)(inner)

	serve(h, routedRequest("/api/v1/auth/register", "k3", `{}`))
	serve(h, routedRequest("/api/v1/auth/register", "k3", `{}`))
	assert.Equal(t, 2, inner.runs)
	assert.Empty(t, store.values)
}

func TestIdempotencyKeysAreScopedPerCustomer(t *testing.T) {
	store := newMemoryReplayStore()
	inner := &countingHandler{status: http.StatusOK}
	h := Idempotency(store, nil)(inner)

	for _, customer := range []string{"customer-a", "customer-b"} {
		req := routedRequest("/api/v1/checkout", "same-key", `{}`)
		serve(h, req.WithContext(WithCustomerID(req.Context(), customer)))
	}
	assert.Equal(t, 2, inner.runs)
	assert.Len(t, store.values, 2)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newMemoryReplayStore()
	h := Idempotency(store, nil)(&countingHandler{status: http.StatusOK})

	serve(h, routedRequest("/api/v1/checkout", "xyz", `{"notify_url":"https://a"}`))
	rec := serve(h, routedRequest("/api/v1/checkout", "xyz", `{"notify_url":"https://b"}`))

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), body.Error.Code)
}

func TestIdempotencyStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryReplayStore()
	store.getErr = errors.New("connection refused")
	inner := &countingHandler{status: http.StatusOK}

	rec := serve(Idempotency(store, nil)(inner), routedRequest("/api/v1/checkout", "k", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, inner.runs)
}
