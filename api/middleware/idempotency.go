package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD pattern" to how long a replay stays available.
// Checkout keeps its record longer since a duplicate would create a second order.
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/auth/register":  defaultIdempotencyTTL,
	http.MethodPost + " /api/admin/v1/products": defaultIdempotencyTTL,
	http.MethodPost + " /api/admin/v1/coupons":  defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout":       criticalIdempotencyTTL,
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	ttl, ok := idempotentRoutes[method+" "+pattern]
	return ttl, ok
}

type replay struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

func (p replay) writeTo(w http.ResponseWriter) {
	if p.ContentType != "" {
		w.Header().Set("Content-Type", p.ContentType)
	}
	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(p.Body)
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key on a covered route. Requests without the header pass through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, matchedPattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || !covered || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			digest := sha256.Sum256(payload)
			fingerprint := hex.EncodeToString(digest[:])

			storeKey := store.IdempotencyKey(replayScope(r), clientKey)
			prior, err := lookupReplay(r, store, storeKey)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if prior != nil {
				if prior.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.writeTo(w)
				return
			}

			tee := &teeWriter{ResponseWriter: w}
			next.ServeHTTP(tee, r)
			if !replayable(tee.status, tee.captured.Bytes()) {
				return
			}

			encoded, err := json.Marshal(replay{
				Fingerprint: fingerprint,
				Status:      tee.status,
				ContentType: tee.Header().Get("Content-Type"),
				Body:        tee.captured.Bytes(),
			})
			if err == nil {
				_, err = store.SetNX(ctx, storeKey, string(encoded), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "unable to save idempotent response", err)
			}
		})
	}
}

// replayable reports whether a response may be stored for replay. Server
// errors and failures with a retryable code are not, so a retry with the same
// key runs the handler again.
func replayable(status int, body []byte) bool {
	if status >= http.StatusInternalServerError {
		return false
	}
	var outcome struct {
		Error *struct {
			Code pkgerrors.Code `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &outcome); err != nil || outcome.Error == nil {
		return true
	}
	return !pkgerrors.MetadataFor(outcome.Error.Code).Retryable
}

func lookupReplay(r *http.Request, store pkgredis.IdempotencyStore, key string) (*replay, error) {
	raw, err := store.Get(r.Context(), key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && raw == ""):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable")
	}
	var stored replay
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "corrupt idempotency record")
	}
	return &stored, nil
}

// replayScope keeps keys from colliding across customers and anonymous carts.
func replayScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{CustomerIDFromContext(ctx), SessionKeyFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func matchedPattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type teeWriter struct {
	http.ResponseWriter
	captured bytes.Buffer
	status   int
}

func (t *teeWriter) WriteHeader(code int) {
	if t.status == 0 {
		t.status = code
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *teeWriter) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	t.captured.Write(b)
	return t.ResponseWriter.Write(b)
}
