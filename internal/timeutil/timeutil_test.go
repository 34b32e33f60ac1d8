package timeutil

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestToLocal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		instant time.Time
		tz      string
		want    string
	}{
		{
			name:    "UTC instant in New York standard time",
			instant: time.Date(2024, 1, 15, 18, 30, 45, 123e6, time.UTC),
			tz:      "America/New_York",
			want:    "2024-01-15T13:30:45.123",
		},
		{
			name:    "UTC instant in New York daylight time",
			instant: time.Date(2024, 7, 15, 18, 30, 45, 0, time.UTC),
			tz:      "America/New_York",
			want:    "2024-07-15T14:30:45.000",
		},
		{
			name:    "crosses local date boundary",
			instant: time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC),
			tz:      "Asia/Tokyo",
			want:    "2024-03-10T10:00:00.000",
		},
		{
			name:    "unknown zone falls back to default zone",
			instant: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
			tz:      "Not/AZone",
			want:    "2024-01-15T13:00:00.000",
		},
		{
			name:    "empty zone falls back to default zone",
			instant: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
			tz:      "",
			want:    "2024-01-15T13:00:00.000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToLocal(tt.instant, tt.tz)
			if got != tt.want {
				t.Errorf("ToLocal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_RoundTripsToLocal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		instant time.Time
		tz      string
	}{
		{"standard time", time.Date(2024, 1, 15, 18, 30, 45, 123e6, time.UTC), "America/New_York"},
		{"daylight time", time.Date(2024, 7, 15, 18, 30, 45, 999e6, time.UTC), "America/New_York"},
		{"just before spring-forward gap", time.Date(2024, 3, 10, 6, 59, 59, 0, time.UTC), "America/New_York"},
		{"just after spring-forward gap", time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC), "America/New_York"},
		{"half-hour offset zone", time.Date(2024, 5, 1, 0, 15, 0, 500e6, time.UTC), "Asia/Kolkata"},
		{"utc", time.Date(2024, 12, 31, 23, 59, 59, 999e6, time.UTC), "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := ToLocal(tt.instant, tt.tz)
			got, err := Parse(local, tt.tz)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", local, err)
			}
			if !got.Equal(tt.instant) {
				t.Errorf("round trip: got %v, want %v", got, tt.instant)
			}
		})
	}
}

// Zones without DST transitions, so every wall-clock time is unambiguous and
// the round-trip law holds for arbitrary instants.
var fixedOffsetZones = []string{"UTC", "Asia/Tokyo", "Asia/Kolkata", "America/Phoenix"}

func TestParse_RoundTripLaw(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		sec := rapid.Int64Range(0, 4_102_444_800).Draw(rt, "unix_sec")
		ms := rapid.Int64Range(0, 999).Draw(rt, "millis")
		tz := rapid.SampledFrom(fixedOffsetZones).Draw(rt, "tz")

		instant := time.Unix(sec, ms*int64(time.Millisecond)).UTC()
		got, err := Parse(ToLocal(instant, tz), tz)
		if err != nil {
			rt.Fatalf("Parse error: %v", err)
		}
		if !got.Equal(instant) {
			rt.Fatalf("round trip mismatch: got %v, want %v (tz %s)", got, instant, tz)
		}
	})
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := Parse("not-a-time", "UTC"); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestToHumanReadable(t *testing.T) {
	t.Parallel()

	if got := ToHumanReadable("2024-01-15T13:30:45.123"); got != "1/15/2024, 1:30:45 PM" {
		t.Errorf("ToHumanReadable() = %q", got)
	}
	// Invalid input passes through unchanged.
	if got := ToHumanReadable("garbage"); got != "garbage" {
		t.Errorf("ToHumanReadable(garbage) = %q", got)
	}
}

func TestSameLocalDay(t *testing.T) {
	t.Parallel()

	// 03:00 UTC is the previous day in New York but the same day in Tokyo.
	a := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)
	noonSameDayUTC := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	if SameLocalDay(a, noonSameDayUTC, "America/New_York") {
		t.Error("expected different local days in America/New_York")
	}
	if !SameLocalDay(a, noonSameDayUTC, "Asia/Tokyo") {
		t.Error("expected same local day in Asia/Tokyo")
	}
}

// No t.Parallel: mutates the package-level default zone.
func TestSetDefaultZone(t *testing.T) {
	original := DefaultZone
	defer SetDefaultZone(original)

	SetDefaultZone("Europe/Berlin")
	if DefaultZone != "Europe/Berlin" {
		t.Errorf("DefaultZone = %q, want Europe/Berlin", DefaultZone)
	}

	// The fallback path picks up the override.
	instant := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	if got, want := ToLocal(instant, ""), "2024-06-10T14:00:00.000"; got != want {
		t.Errorf("ToLocal with overridden default = %q, want %q", got, want)
	}

	// Unknown and empty names leave the default untouched.
	SetDefaultZone("Mars/Olympus_Mons")
	if DefaultZone != "Europe/Berlin" {
		t.Errorf("DefaultZone after unknown name = %q", DefaultZone)
	}
	SetDefaultZone("")
	if DefaultZone != "Europe/Berlin" {
		t.Errorf("DefaultZone after empty name = %q", DefaultZone)
	}
}
