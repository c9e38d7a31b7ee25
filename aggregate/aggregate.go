// Package aggregate implements the incremental aggregate accumulators a
// windowed pump's Aggregate subtask drives (spec.md §4.4 step 4, §4.9):
// AVG, SUM, COUNT, MIN, MAX. The New()/Add()/Result() contract is grounded
// on the teacher's functions.AggregatorFunction interface
// (functions/aggregator_interface.go), narrowed from interface{} to
// value.Value and from a registry-of-named-functions to the small fixed set
// spec.md names.
package aggregate

import (
	"github.com/zzl221000/springql/springqlerr"
	"github.com/zzl221000/springql/value"
)

// Function is the SQL aggregate function an AggregateExpr names.
type Function string

const (
	Avg   Function = "AVG"
	Sum   Function = "SUM"
	Count Function = "COUNT"
	Min   Function = "MIN"
	Max   Function = "MAX"
)

// Accumulator incrementally folds a stream of Values into one aggregate
// result. Non-Null inputs only: callers skip Null rows before calling Add,
// matching SQL's "aggregate functions ignore NULL" semantics.
type Accumulator interface {
	// Add folds v into the running aggregate.
	Add(v value.Value) error
	// Result returns the current aggregate value. An accumulator that has
	// never seen a row returns Null (spec.md §4.9 "empty group" case),
	// except COUNT, which returns 0.
	Result() (value.Value, error)
	// Clone returns an independent copy carrying the same accumulated state,
	// used when a Pane must be duplicated without re-folding its rows.
	Clone() Accumulator
}

// New returns a fresh, empty accumulator for fn.
func New(fn Function) (Accumulator, error) {
	switch fn {
	case Avg:
		return &avgAcc{}, nil
	case Sum:
		return &sumAcc{}, nil
	case Count:
		return &countAcc{}, nil
	case Min:
		return &minMaxAcc{isMin: true}, nil
	case Max:
		return &minMaxAcc{isMin: false}, nil
	default:
		return nil, springqlerr.New(springqlerr.Sql, "unknown aggregate function %q", fn)
	}
}

type avgAcc struct {
	sum   float64
	count int64
}

func (a *avgAcc) Add(v value.Value) error {
	f, err := v.AsFloat64()
	if err != nil {
		return err
	}
	a.sum += f
	a.count++
	return nil
}

func (a *avgAcc) Result() (value.Value, error) {
	if a.count == 0 {
		return value.Null(), nil
	}
	return value.NewF64(a.sum / float64(a.count)), nil
}

func (a *avgAcc) Clone() Accumulator {
	c := *a
	return &c
}

type sumAcc struct {
	sum   float64
	seen  bool
	isInt bool
}

func (a *sumAcc) Add(v value.Value) error {
	switch v.Tag() {
	case value.TagI16, value.TagI32, value.TagI64:
		if !a.seen {
			a.isInt = true
		}
	case value.TagF64:
		a.isInt = false
	}
	f, err := v.AsFloat64()
	if err != nil {
		return err
	}
	a.sum += f
	a.seen = true
	return nil
}

func (a *sumAcc) Result() (value.Value, error) {
	if !a.seen {
		return value.Null(), nil
	}
	if a.isInt {
		return value.NewI64(int64(a.sum)), nil
	}
	return value.NewF64(a.sum), nil
}

func (a *sumAcc) Clone() Accumulator {
	c := *a
	return &c
}

type countAcc struct {
	n int64
}

func (a *countAcc) Add(value.Value) error {
	a.n++
	return nil
}

func (a *countAcc) Result() (value.Value, error) {
	return value.NewI64(a.n), nil
}

func (a *countAcc) Clone() Accumulator {
	c := *a
	return &c
}

type minMaxAcc struct {
	isMin bool
	seen  bool
	best  value.Value
}

func (a *minMaxAcc) Add(v value.Value) error {
	if !a.seen {
		a.best = v
		a.seen = true
		return nil
	}
	bf, err := a.best.AsFloat64()
	if err != nil {
		return err
	}
	vf, err := v.AsFloat64()
	if err != nil {
		return err
	}
	if (a.isMin && vf < bf) || (!a.isMin && vf > bf) {
		a.best = v
	}
	return nil
}

func (a *minMaxAcc) Result() (value.Value, error) {
	if !a.seen {
		return value.Null(), nil
	}
	return a.best, nil
}

func (a *minMaxAcc) Clone() Accumulator {
	c := *a
	return &c
}
