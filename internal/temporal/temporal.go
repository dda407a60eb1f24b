// Package temporal holds the interval predicates shared by the contact
// queries.
package temporal

import (
	"time"

	"github.com/wagnerlima/contact-graph/internal/models"
)

// HappensAfter reports whether instant is strictly before the visit started.
func HappensAfter(instant time.Time, v models.Visit) bool {
	return instant.Before(v.StartTime)
}

// OverlapDuration returns how long two visits intersect. The result is zero
// or negative when the intervals are disjoint.
func OverlapDuration(a, b models.Visit) time.Duration {
	start := a.StartTime
	if b.StartTime.After(start) {
		start = b.StartTime
	}
	end := a.EndTime
	if b.EndTime.Before(end) {
		end = b.EndTime
	}
	return end.Sub(start)
}

// Overlaps reports whether two visits intersect for at least threshold.
func Overlaps(a, b models.Visit, threshold time.Duration) bool {
	return OverlapDuration(a, b) >= threshold
}
