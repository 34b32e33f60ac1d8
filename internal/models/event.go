package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the type of care activity.
type EventKind string

const (
	EventKindFeed   EventKind = "feed"
	EventKindWet    EventKind = "wet"
	EventKindSoiled EventKind = "soiled"
	EventKindSleep  EventKind = "sleep"
)

// KnownEventKinds lists the accepted event kinds, used for request validation.
var KnownEventKinds = []EventKind{EventKindFeed, EventKindWet, EventKindSoiled, EventKindSleep}

// Event is one timestamped care-activity record. OccurredAt is immutable after
// creation; only Kind, Quantity and Note may change. Quantity is milliliters
// and only meaningful for feed events.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	ProfileID  uuid.UUID  `json:"profile_id"`
	Kind       EventKind  `json:"kind"`
	Quantity   float64    `json:"quantity"`
	OccurredAt time.Time  `json:"occurred_at"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// IsFeed reports whether the event participates in feeding aggregation.
func (e *Event) IsFeed() bool {
	return e.Kind == EventKindFeed
}
