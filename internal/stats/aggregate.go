// Package stats computes rolling and calendar-day feeding statistics from the
// event log. All functions are pure and never mutate their inputs.
package stats

import (
	"time"

	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/timeutil"
)

// RollingWindow is the trailing window size. The boundary is inclusive: an
// event exactly 24h from now is counted.
const RollingWindow = 24 * time.Hour

// Aggregate computes feeding statistics over the rolling-24h and calendar-day
// windows around now, evaluated in the given timezone. Only feed events
// participate. An empty event list yields all-zero stats.
func Aggregate(events []models.Event, now time.Time, tz string) models.AggregateStats {
	var out models.AggregateStats

	for i := range events {
		e := &events[i]
		if !e.IsFeed() {
			continue
		}

		diff := now.Sub(e.OccurredAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= RollingWindow {
			out.Rolling24h.TotalQuantity += e.Quantity
			out.Rolling24h.Count++
		}

		if timeutil.SameLocalDay(e.OccurredAt, now, tz) {
			out.CalendarDay.TotalQuantity += e.Quantity
			out.CalendarDay.Count++
		}
	}

	out.Rolling24h.AverageQuantity = average(out.Rolling24h.TotalQuantity, out.Rolling24h.Count)
	out.CalendarDay.AverageQuantity = average(out.CalendarDay.TotalQuantity, out.CalendarDay.Count)
	return out
}

func average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
