package window

import (
	"time"

	"github.com/zzl221000/springql/aggregate"
)

// WindowKind distinguishes the sliding/tumbling window shapes spec.md §4.9
// covers. Tumbling is the degenerate case Period == Length.
type WindowKind int

const (
	Sliding WindowKind = iota
	Tumbling
)

// Params describes one windowed pump's window clause.
type Params struct {
	Kind   WindowKind
	Length time.Duration
	Period time.Duration
}

// Panes maintains a Pane set sorted by OpenAt and drives the sort-merge
// generate/dispatch/close algorithm of spec.md §4.9 and §9's "windowing
// lifecycle" design note, grounded on the original engine's
// task/window/panes.rs: Panes.panes_to_dispatch /
// generate_panes_if_not_exist / remove_panes_to_close.
type Panes struct {
	params Params
	fn     aggregate.Function
	panes  []*Pane // sorted by OpenAt
}

// NewPanes returns an empty Panes for the given window parameters and
// aggregate function.
func NewPanes(params Params, fn aggregate.Function) *Panes {
	return &Panes{params: params, fn: fn}
}

// PanesToDispatch generates any panes rowtime newly falls into (if not
// already present) and returns every pane currently accepting rowtime.
// Callers must assure rowtime is not smaller than the watermark (spec.md
// §4.9 step (a): rows earlier than the watermark are dropped before this
// is called).
func (ps *Panes) PanesToDispatch(rowtime time.Time) []*Pane {
	ps.generateIfNotExist(rowtime)

	var out []*Pane
	for _, p := range ps.panes {
		if p.IsAcceptable(rowtime) {
			out = append(out, p)
		}
	}
	return out
}

// RemovePanesToClose evicts and returns every pane whose CloseAt has
// fallen at or behind watermark, in OpenAt order (spec.md §4.9 "Pane
// closure").
func (ps *Panes) RemovePanesToClose(watermark time.Time) []*Pane {
	var closing []*Pane
	kept := ps.panes[:0]
	for _, p := range ps.panes {
		if p.ShouldClose(watermark) {
			closing = append(closing, p)
		} else {
			kept = append(kept, p)
		}
	}
	ps.panes = kept
	return closing
}

// generateIfNotExist inserts a new Pane for every open_at this rowtime
// belongs to that doesn't already have one, using a sort-merge walk over
// the OpenAt-sorted existing panes (mirrors panes.rs's
// generate_panes_if_not_exist).
func (ps *Panes) generateIfNotExist(rowtime time.Time) {
	openAts := ps.validOpenAts(rowtime)

	idx := 0
	for _, openAt := range openAts {
		for {
			if idx < len(ps.panes) {
				switch {
				case openAt.Before(ps.panes[idx].OpenAt):
					// reached when a row within the allowed delay arrives
					// behind the newest row and needs an earlier pane;
					// insert it in open-time order.
					p := newPane(openAt, openAt.Add(ps.params.Length), ps.fn)
					ps.panes = append(ps.panes, nil)
					copy(ps.panes[idx+1:], ps.panes[idx:])
					ps.panes[idx] = p
					idx++
					goto next
				case openAt.Equal(ps.panes[idx].OpenAt):
					idx++
					goto next
				default: // openAt is after panes[idx].OpenAt
					idx++
				}
			} else {
				ps.panes = append(ps.panes, newPane(openAt, openAt.Add(ps.params.Length), ps.fn))
				idx++
				goto next
			}
		}
	next:
	}
}

// validOpenAts computes the open_at values of every pane that must accept
// rowtime, per spec.md §4.9's formula:
//
//	open_at ∈ [ceil((rowtime-L)/P)*P + edge_correction, floor(rowtime/P)*P]
//
// stepping by P. Edge correction: when rowtime-L lands exactly on a period
// boundary, the leftmost candidate is excluded (left-exclusive), so it
// shifts one period to the right.
func (ps *Panes) validOpenAts(rowtime time.Time) []time.Time {
	length := ps.params.Length
	period := ps.params.Period

	leftBoundary := rowtime.Add(-length)
	leftmost := ceilToPeriod(leftBoundary, period)
	if leftmost.Equal(leftBoundary) {
		leftmost = leftmost.Add(period)
	}
	rightmost := floorToPeriod(rowtime, period)

	var out []time.Time
	for t := leftmost; !t.After(rightmost); t = t.Add(period) {
		out = append(out, t)
	}
	return out
}

func floorToPeriod(t time.Time, period time.Duration) time.Time {
	unitNanos := t.UnixNano()
	p := period.Nanoseconds()
	floored := (unitNanos / p) * p
	if unitNanos < 0 && unitNanos%p != 0 {
		floored -= p
	}
	return time.Unix(0, floored).UTC()
}

func ceilToPeriod(t time.Time, period time.Duration) time.Time {
	floor := floorToPeriod(t, period)
	if floor.Equal(t) {
		return floor
	}
	return floor.Add(period)
}
