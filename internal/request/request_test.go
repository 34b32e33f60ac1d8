package request

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nestling-app/nestling-api/internal/timeutil"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-forwarded-for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "203.0.113.8"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.8",
		},
		{
			name:   "remote addr fallback",
			remote: "10.0.0.1:1234",
			want:   "10.0.0.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimezone(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/?tz=Asia/Tokyo", nil)
	r.Header.Set(TimezoneHeader, "Europe/Paris")
	if got := Timezone(r); got != "Asia/Tokyo" {
		t.Errorf("Timezone() = %q, want query param to win", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set(TimezoneHeader, "Europe/Paris")
	if got := Timezone(r); got != "Europe/Paris" {
		t.Errorf("Timezone() = %q, want header value", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if got := Timezone(r); got != timeutil.DefaultZone {
		t.Errorf("Timezone() = %q, want default zone", got)
	}
}

func TestUserTime(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/?user_time=2026-08-31T14:30:00.000", nil)
	got := UserTime(r, "America/New_York")

	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2026, 8, 31, 14, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("UserTime() = %v, want %v", got, want)
	}

	// Malformed values fall back to the server clock.
	r = httptest.NewRequest("GET", "/?user_time=garbage", nil)
	got = UserTime(r, "America/New_York")
	if time.Since(got) > time.Minute {
		t.Errorf("UserTime() fallback = %v, want approximately now", got)
	}
}
