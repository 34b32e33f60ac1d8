// Package timeutil converts absolute instants to and from canonical local-time
// strings in an IANA timezone, with DST handled by the zone database rather
// than fixed offsets.
package timeutil

import (
	"fmt"
	"time"
)

// LocalLayout is the canonical local-time string shape: wall-clock time in a
// zone, millisecond precision, no offset suffix.
const LocalLayout = "2006-01-02T15:04:05.000"

// HumanLayout is the display format used in prompts and UI payloads.
const HumanLayout = "1/2/2006, 3:04:05 PM"

// DefaultZone is used whenever a caller supplies an unrecognized timezone
// name. Formatting falls back instead of erroring. Overridable at startup via
// SetDefaultZone.
var DefaultZone = "America/New_York"

// SetDefaultZone replaces the fallback zone. Unknown or empty names are
// ignored. Called once during startup, before any requests are served; not
// synchronized against concurrent formatting.
func SetDefaultZone(tz string) {
	if tz == "" {
		return
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return
	}
	DefaultZone = tz
}

// Location resolves an IANA zone name, falling back to DefaultZone for
// unknown names and to UTC if the zone database is missing entirely.
func Location(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultZone); err == nil {
		return loc
	}
	return time.UTC
}

// ToLocal formats an absolute instant as a canonical local-time string in the
// given zone.
func ToLocal(instant time.Time, tz string) string {
	return instant.In(Location(tz)).Format(LocalLayout)
}

// Parse converts a canonical local-time string back to the absolute instant
// it was formatted from, interpreting the wall-clock fields in the given
// zone. It is the left inverse of ToLocal to millisecond precision.
func Parse(local string, tz string) (time.Time, error) {
	t, err := time.ParseInLocation(LocalLayout, local, Location(tz))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local time %q: %w", local, err)
	}
	return t, nil
}

// ToHumanReadable renders a canonical local-time string for display. Invalid
// input is returned unchanged so callers never lose the raw value.
func ToHumanReadable(local string) string {
	t, err := time.Parse(LocalLayout, local)
	if err != nil {
		return local
	}
	return t.Format(HumanLayout)
}

// SameLocalDay reports whether two instants fall on the same calendar date in
// the given zone.
func SameLocalDay(a, b time.Time, tz string) bool {
	loc := Location(tz)
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
