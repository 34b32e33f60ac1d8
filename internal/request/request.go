// Package request extracts per-request metadata shared by middleware and
// handlers.
package request

import (
	"net/http"
	"strings"
	"time"

	"github.com/nestling-app/nestling-api/internal/timeutil"
)

// TimezoneHeader carries the caller's IANA timezone name. The tz query
// parameter takes precedence when both are present.
const TimezoneHeader = "X-Timezone"

// ClientIP extracts the client IP from the request, respecting
// X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// Timezone resolves the caller's timezone from the tz query parameter or the
// X-Timezone header, falling back to the default zone. The returned name is
// not validated here; time formatting falls back on unknown zones.
func Timezone(r *http.Request) string {
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		return tz
	}
	if tz := strings.TrimSpace(r.Header.Get(TimezoneHeader)); tz != "" {
		return tz
	}
	return timeutil.DefaultZone
}

// UserTime resolves the caller's notion of "now" from the user_time query
// parameter, expressed as a canonical local-time string in the caller's
// timezone. Absent or malformed values fall back to the server clock.
func UserTime(r *http.Request, tz string) time.Time {
	raw := strings.TrimSpace(r.URL.Query().Get("user_time"))
	if raw == "" {
		return time.Now()
	}
	t, err := timeutil.Parse(raw, tz)
	if err != nil {
		return time.Now()
	}
	return t
}
