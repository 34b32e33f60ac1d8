// Package middleware holds the HTTP middleware chain: request logging, panic
// recovery, timeouts, security headers, body limits, CORS and rate limiting
// with database-backed hot reload.
package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/nestling-app/nestling-api/internal/logger"
	"github.com/nestling-app/nestling-api/internal/request"
	"go.uber.org/zap"
)

// Logging creates request logging middleware.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", duration.Milliseconds()),
				zap.String("client_ip", request.ClientIP(r)),
			)
		})
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
