package task

import (
	"time"

	"github.com/zzl221000/springql/aggregate"
	"github.com/zzl221000/springql/expr"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/value"
	"github.com/zzl221000/springql/window"
)

// CollectedRows models the bundle of one Collect subtask step: either a
// single row pulled from a RowQueue, or the set of Panes a window-queue
// dispatch made eligible. The pump's collect functions in this package do
// not build it; they process each row directly. Grounded on the original engine's
// collect_subtask.rs (which returns Option<(Vec<Tuple>, ...)> — a bundle of
// zero or more tuples, not always exactly one).
type CollectedRows struct {
	Rows  []*row.Row
	Panes []*window.Pane // non-nil only for a window-queue input that just closed panes
}

// runPump executes one Collect/Project-Filter/Aggregate/Emit cycle for a
// pump task (spec.md §4.4).
func (t *Task) runPump() (bool, error) {
	p := t.Node.Pump
	if len(t.Node.Inputs) == 0 {
		return false, nil
	}

	didWork := false
	for _, in := range t.Node.Inputs {
		ok, err := t.collectOne(p, in.QueueID)
		if err != nil {
			return didWork, err
		}
		if ok {
			didWork = true
		}
	}
	return didWork, nil
}

// collectOne pulls one unit of input from in and, for a windowed pump,
// drives pane aggregation; for a non-windowed pump, projects/filters the row
// and emits it immediately downstream.
func (t *Task) collectOne(p *pipeline.PumpModel, qid queue.ID) (bool, error) {
	if qid.Kind == queue.KindRow {
		return t.collectFromRowQueue(p, qid)
	}
	return t.collectFromWindowQueue(p, qid)
}

func (t *Task) collectFromRowQueue(p *pipeline.PumpModel, qid queue.ID) (bool, error) {
	rq, ok := t.rt.Repo.Row(qid.RowID)
	if !ok {
		return false, nil
	}
	r, ok := rq.Use()
	if !ok {
		return false, nil
	}
	out, pass, err := t.projectFilter(p, r)
	if err != nil {
		return true, err
	}
	if !pass {
		return true, nil
	}
	for _, outEdge := range t.Node.Outputs {
		if err := pushToEdge(t.rt, outEdge.QueueID, out); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (t *Task) collectFromWindowQueue(p *pipeline.PumpModel, qid queue.ID) (bool, error) {
	wq, ok := t.rt.Repo.Window(qid.WinID)
	if !ok {
		return false, nil
	}

	wm := t.rt.windowWatermark(qid.WinID, qid.AllowedDelay)
	wp := window.Params{
		Kind:   window.Sliding,
		Length: time.Duration(p.Query.Window.Length),
		Period: time.Duration(p.Query.Window.Period),
	}
	ps := t.panes(wp, aggregate.Function(p.Query.Aggregates[0].Function))

	r, rowtime, ok := wq.Dispatch(wm.AsTimestamp())
	if !ok {
		return false, nil
	}

	didWork := false
	filtered, pass, err := t.filterOnly(p, r)
	if err != nil {
		return true, err
	}
	if pass {
		groupVals, err := t.groupByValues(p, filtered)
		if err != nil {
			return true, err
		}
		aggInput, err := t.aggregateInput(p, filtered)
		if err != nil {
			return true, err
		}
		for _, pane := range ps.PanesToDispatch(rowtime) {
			if err := pane.Accumulate(groupVals, aggInput); err != nil {
				return true, err
			}
		}
		didWork = true
	}

	// watermark already advanced at push time (spec.md §4.9 step (c) happens
	// when the row is admitted into the window queue, not at dispatch).
	closed := ps.RemovePanesToClose(wm.AsTimestamp())
	for _, pane := range closed {
		if err := t.emitPane(p, pane); err != nil {
			return true, err
		}
		didWork = true
	}
	return didWork, nil
}

func (t *Task) emitPane(p *pipeline.PumpModel, pane *window.Pane) error {
	results, err := pane.Finalize()
	if err != nil {
		return err
	}
	outShape := outputShape(p)
	for _, gr := range results {
		vals := make([]value.Value, len(outShape.Columns))
		for i, name := range groupByColumnNames(p) {
			idx := outShape.IndexOf(name)
			if idx >= 0 && i < len(gr.GroupValues) {
				vals[idx] = gr.GroupValues[i]
			}
		}
		aggExpr := p.Query.Aggregates[0]
		idx := outShape.IndexOf(aggExpr.OutputName)
		if idx >= 0 {
			vals[idx] = gr.Result
		}
		out := row.NewRowFromValues(outShape, vals)
		for _, outEdge := range t.Node.Outputs {
			if err := pushToEdge(t.rt, outEdge.QueueID, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// projectFilter evaluates the pump's WHERE clause (if any) then its
// projection list against r, returning the projected output row.
func (t *Task) projectFilter(p *pipeline.PumpModel, r *row.Row) (*row.Row, bool, error) {
	filtered, pass, err := t.filterOnly(p, r)
	if err != nil || !pass {
		return nil, pass, err
	}
	return t.project(p, filtered)
}

func (t *Task) filterOnly(p *pipeline.PumpModel, r *row.Row) (*row.Row, bool, error) {
	if p.Query.Filter == "" {
		return r, true, nil
	}
	n, err := t.compile(p.Query.Filter)
	if err != nil {
		return nil, false, err
	}
	v, err := expr.Eval(n, r)
	if err != nil {
		return nil, false, err
	}
	if v.IsNull() {
		return nil, false, nil
	}
	b, err := v.AsBool()
	if err != nil {
		return nil, false, err
	}
	return r, b, nil
}

func (t *Task) project(p *pipeline.PumpModel, r *row.Row) (*row.Row, bool, error) {
	outShape := outputShape(p)
	vals := make([]value.Value, len(outShape.Columns))
	for i, name := range p.Query.ProjectOrder {
		n, err := t.compile(p.Query.ProjectExprs[name])
		if err != nil {
			return nil, false, err
		}
		v, err := expr.Eval(n, r)
		if err != nil {
			return nil, false, err
		}
		idx := outShape.IndexOf(name)
		if idx >= 0 && idx < len(vals) {
			vals[idx] = v
		}
	}
	return row.NewRowFromValues(outShape, vals), true, nil
}

func (t *Task) aggregateInput(p *pipeline.PumpModel, r *row.Row) (value.Value, error) {
	aggExpr := p.Query.Aggregates[0]
	n, err := t.compile(aggExpr.InputField)
	if err != nil {
		return value.Value{}, err
	}
	return expr.Eval(n, r)
}

func (t *Task) groupByValues(p *pipeline.PumpModel, r *row.Row) ([]value.Value, error) {
	vals := make([]value.Value, 0, len(p.Query.Window.GroupByFields))
	for _, name := range p.Query.Window.GroupByFields {
		n, err := t.compile(name)
		if err != nil {
			return nil, err
		}
		v, err := expr.Eval(n, r)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func groupByColumnNames(p *pipeline.PumpModel) []string {
	return p.Query.Window.GroupByFields
}

// outputShape returns the downstream stream's shape, which
// pipeline.Model.Apply copies from the downstream StreamModel onto the
// PumpModel.
func outputShape(p *pipeline.PumpModel) *row.StreamShape {
	return p.OutputShape
}
