package window

import (
	"fmt"
	"time"

	"github.com/zzl221000/springql/aggregate"
	"github.com/zzl221000/springql/value"
)

// groupKey identifies one GROUP BY bucket within a Pane by its group-by
// field values, serialized to a comparable Go value.
type groupKey string

// Pane is a half-open time interval [OpenAt, CloseAt) carrying one
// aggregation accumulator per GROUP BY key, owned by one windowed pump
// (spec.md §3 "Pane"). Pane.CloseAt = OpenAt + window length.
type Pane struct {
	OpenAt  time.Time
	CloseAt time.Time

	fn     aggregate.Function
	groups map[groupKey]aggregate.Accumulator
	order  []groupKey
	keyVal map[groupKey][]value.Value
}

func newPane(openAt, closeAt time.Time, fn aggregate.Function) *Pane {
	return &Pane{
		OpenAt:  openAt,
		CloseAt: closeAt,
		fn:      fn,
		groups:  map[groupKey]aggregate.Accumulator{},
		keyVal:  map[groupKey][]value.Value{},
	}
}

// IsAcceptable reports whether rowtime falls within this pane's half-open
// interval.
func (p *Pane) IsAcceptable(rowtime time.Time) bool {
	return !rowtime.Before(p.OpenAt) && rowtime.Before(p.CloseAt)
}

// ShouldClose reports whether the watermark has advanced past this pane's
// close boundary (spec.md §4.9 "close_at ≤ watermark").
func (p *Pane) ShouldClose(watermark time.Time) bool {
	return !p.CloseAt.After(watermark)
}

// Accumulate folds v into the accumulator for the group keyed by groupVals.
func (p *Pane) Accumulate(groupVals []value.Value, v value.Value) error {
	key := encodeGroupKey(groupVals)
	acc, ok := p.groups[key]
	if !ok {
		var err error
		acc, err = aggregate.New(p.fn)
		if err != nil {
			return err
		}
		p.groups[key] = acc
		p.keyVal[key] = groupVals
		p.order = append(p.order, key)
	}
	if v.IsNull() {
		return nil // aggregate functions ignore NULL inputs
	}
	return acc.Add(v)
}

// GroupResult is one finalized (group-by values, aggregate result) pair
// emitted when a Pane closes.
type GroupResult struct {
	GroupValues []value.Value
	Result      value.Value
}

// Finalize returns one GroupResult per group key observed in this pane, in
// first-seen order.
func (p *Pane) Finalize() ([]GroupResult, error) {
	out := make([]GroupResult, 0, len(p.order))
	for _, key := range p.order {
		res, err := p.groups[key].Result()
		if err != nil {
			return nil, err
		}
		out = append(out, GroupResult{GroupValues: p.keyVal[key], Result: res})
	}
	return out, nil
}

func encodeGroupKey(vals []value.Value) groupKey {
	s := ""
	for _, v := range vals {
		if v.IsNull() {
			s += fmt.Sprintf("%d:NULL|", v.Tag())
			continue
		}
		if str, err := v.AsText(); err == nil {
			s += fmt.Sprintf("%d:%s|", v.Tag(), str)
			continue
		}
		if t, err := v.AsTimestamp(); err == nil {
			s += fmt.Sprintf("%d:%s|", v.Tag(), value.FormatTimestamp(t))
			continue
		}
		f, _ := v.AsFloat64()
		s += fmt.Sprintf("%d:%v|", v.Tag(), f)
	}
	return groupKey(s)
}
