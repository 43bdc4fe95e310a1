package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	SessionKeyHeader    = "X-Session-Key"
	maxSessionKeyLength = 128
)

type SessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartSessionKey(session string) string
}

// CartSession binds the anonymous cart session to the request. A missing or
// malformed X-Session-Key is replaced by a fresh one, echoed back in the response.
func CartSession(store SessionStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := strings.TrimSpace(r.Header.Get(SessionKeyHeader))
			if key == "" || len(key) > maxSessionKeyLength {
				key = uuid.NewString()
				if store != nil {
					if err := store.Set(ctx, store.CartSessionKey(key), time.Now().UTC().Format(time.RFC3339), ttl); err != nil && logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart session not recorded")
					}
				}
			}
			w.Header().Set(SessionKeyHeader, key)

			ctx = WithSessionKey(ctx, key)
			if logg != nil {
				ctx = logg.WithField(ctx, "session_key", key)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
