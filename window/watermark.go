// Package window implements the windowed-aggregation machinery of spec.md
// §4.9: a per-window Watermark tracking the high-water mark of observed
// event time, and Panes, the sort-merge generation/eviction of sliding- or
// tumbling-window panes that aggregate rows as they are dispatched.
package window

import (
	"time"

	"github.com/zzl221000/springql/value"
)

// Watermark tracks watermark = max(rowtime) - allowed_delay for one window,
// grounded on the original engine's task/window/watermark.rs.
type Watermark struct {
	maxRowtime   time.Time
	allowedDelay time.Duration
}

// NewWatermark returns a Watermark starting at the engine's designated
// minimum timestamp, so the first row observed always advances it.
func NewWatermark(allowedDelay time.Duration) *Watermark {
	return &Watermark{maxRowtime: value.MinTimestamp, allowedDelay: allowedDelay}
}

// AsTimestamp returns the current watermark value.
func (w *Watermark) AsTimestamp() time.Time {
	return w.maxRowtime.Add(-w.allowedDelay)
}

// Update advances the watermark if rowtime is newer than any row seen so far.
func (w *Watermark) Update(rowtime time.Time) {
	if rowtime.After(w.maxRowtime) {
		w.maxRowtime = rowtime
	}
}
