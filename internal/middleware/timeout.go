package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds ordinary request handling. Model-backed
// endpoints pass a larger value since a backend invocation can take most of a
// minute.
const DefaultRequestTimeout = 30 * time.Second

// Timeout creates a middleware that enforces a timeout on request handlers.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			handler := http.TimeoutHandler(next, timeout, "Request Timeout")
			handler.ServeHTTP(w, r)
		})
	}
}
