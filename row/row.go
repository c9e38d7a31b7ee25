package row

import (
	"time"

	"github.com/zzl221000/springql/springqlerr"
	"github.com/zzl221000/springql/value"
)

// SchemalessRow is a mapping from column name to Value used at foreign
// boundaries, before a Row has been bound to a StreamShape.
type SchemalessRow map[string]interface{}

// Row is an ordered, schema-bound, immutable tuple of Values. It carries a
// monotonic ArrivalTime assigned the moment it enters the engine, and
// optionally a Rowtime drawn from the stream's declared ROWTIME column.
//
// Rows are immutable once constructed: every transforming subtask produces a
// new Row rather than mutating one in place. Column values support one-shot
// extraction (Take) for callers that want move-out semantics matching the
// original engine's non-copyable SqlValue; Get never consumes.
type Row struct {
	shape       *StreamShape
	values      []value.Value
	taken       []bool
	arrivalTime time.Time
	rowtime     *time.Time
}

// NewRowFromSchemaless binds a SchemalessRow to shape, producing a Row.
// Fails with InvalidFormat when a required (non-nullable) column is
// missing, or an unexpected key is present that the shape doesn't declare.
func NewRowFromSchemaless(shape *StreamShape, src SchemalessRow) (*Row, error) {
	for k := range src {
		if shape.IndexOf(k) < 0 {
			return nil, springqlerr.New(springqlerr.InvalidFormat, "stream %s has no column %q", shape.StreamName, k)
		}
	}

	values := make([]value.Value, len(shape.Columns))
	for i, col := range shape.Columns {
		raw, present := src[col.Name]
		if !present || raw == nil {
			if !col.Nullable {
				return nil, springqlerr.New(springqlerr.InvalidFormat, "column %q of stream %s is required", col.Name, shape.StreamName)
			}
			values[i] = value.Null()
			continue
		}
		v, err := value.FromAny(raw, col.Tag)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	r := &Row{
		shape:       shape,
		values:      values,
		taken:       make([]bool, len(values)),
		arrivalTime: time.Now().UTC(),
	}
	if shape.HasRowtime() {
		idx := shape.IndexOf(shape.RowtimeColumn)
		ts, err := values[idx].AsTimestamp()
		if err != nil {
			return nil, springqlerr.Wrap(springqlerr.InvalidFormat, err, "ROWTIME column %q must be TIMESTAMP", shape.RowtimeColumn)
		}
		r.rowtime = &ts
	}
	return r, nil
}

// NewRowFromValues constructs a Row directly from an ordered Value slice,
// used by pump projections that already produced typed Values and don't
// need to go back through schemaless coercion.
func NewRowFromValues(shape *StreamShape, values []value.Value) *Row {
	r := &Row{
		shape:       shape,
		values:      values,
		taken:       make([]bool, len(values)),
		arrivalTime: time.Now().UTC(),
	}
	if shape.HasRowtime() {
		idx := shape.IndexOf(shape.RowtimeColumn)
		if idx >= 0 && idx < len(values) {
			if ts, err := values[idx].AsTimestamp(); err == nil {
				r.rowtime = &ts
			}
		}
	}
	return r
}

// Shape returns the stream shape this Row is bound to.
func (r *Row) Shape() *StreamShape { return r.shape }

// ArrivalTime is the monotonic time this Row first entered the engine.
func (r *Row) ArrivalTime() time.Time { return r.arrivalTime }

// Rowtime returns the declared event-time column value, if any.
func (r *Row) Rowtime() (time.Time, bool) {
	if r.rowtime == nil {
		return time.Time{}, false
	}
	return *r.rowtime, true
}

// Get returns the value at index i without consuming it. Fails with
// Unavailable when i is out of range or the column was already taken.
func (r *Row) Get(i int) (value.Value, error) {
	if i < 0 || i >= len(r.values) {
		return value.Value{}, springqlerr.New(springqlerr.Unavailable, "column index %d out of range", i)
	}
	if r.taken[i] {
		return value.Value{}, springqlerr.New(springqlerr.Unavailable, "column %d already taken", i)
	}
	return r.values[i], nil
}

// GetByName returns the value of the named column without consuming it.
func (r *Row) GetByName(name string) (value.Value, error) {
	idx := r.shape.IndexOf(name)
	if idx < 0 {
		return value.Value{}, springqlerr.New(springqlerr.Unavailable, "no such column %q", name)
	}
	return r.Get(idx)
}

// Take returns the value at index i and marks it consumed; a second Take or
// Get of the same index fails with Unavailable, matching the one-shot
// extraction contract for non-copyable column values (spec.md §4.1).
func (r *Row) Take(i int) (value.Value, error) {
	if i < 0 || i >= len(r.values) {
		return value.Value{}, springqlerr.New(springqlerr.Unavailable, "column index %d out of range", i)
	}
	if r.taken[i] {
		return value.Value{}, springqlerr.New(springqlerr.Unavailable, "column %d already taken", i)
	}
	r.taken[i] = true
	return r.values[i], nil
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.values) }

// ToSchemaless projects the Row back to a SchemalessRow, omitting Null
// columns — the inverse of NewRowFromSchemaless, used both for sink-writer
// JSON serialization and the round-trip property in spec.md §8.
func (r *Row) ToSchemaless() SchemalessRow {
	out := make(SchemalessRow, len(r.values))
	for i, col := range r.shape.Columns {
		v := r.values[i]
		if v.IsNull() {
			continue
		}
		switch v.Tag() {
		case value.TagBool:
			b, _ := v.AsBool()
			out[col.Name] = b
		case value.TagI16:
			n, _ := v.AsI16()
			out[col.Name] = n
		case value.TagI32:
			n, _ := v.AsI32()
			out[col.Name] = n
		case value.TagI64:
			n, _ := v.AsI64()
			out[col.Name] = n
		case value.TagF64:
			f, _ := v.AsF64()
			out[col.Name] = f
		case value.TagText:
			s, _ := v.AsText()
			out[col.Name] = s
		case value.TagTimestamp:
			t, _ := v.AsTimestamp()
			out[col.Name] = value.FormatTimestamp(t)
		}
	}
	return out
}
