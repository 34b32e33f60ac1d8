package models

// WindowStats holds feeding totals for one aggregation window.
type WindowStats struct {
	TotalQuantity   float64 `json:"total_quantity"`
	Count           int     `json:"count"`
	AverageQuantity float64 `json:"average_quantity"`
}

// AggregateStats is derived on demand from the event log and never persisted.
// Rolling24h covers |now - occurredAt| <= 24h; CalendarDay covers events whose
// local calendar date matches now's in the profile's timezone.
type AggregateStats struct {
	Rolling24h  WindowStats `json:"rolling_24h"`
	CalendarDay WindowStats `json:"calendar_day"`
}
