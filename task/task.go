// Package task implements the runnable Task variants of spec.md §4.4, §9
// ("polymorphic task ... tagged variant over {Source, Pump, Sink} with a
// uniform run(context) contract"): a Source task that drains its reader
// into its output queues, a Pump task running the Collect/Project-Filter/
// Aggregate/Emit subtask pipeline, and a Sink task that drains its input
// queue into its writer. State machine: Started -> Stopped, transitions
// driven only by the reconfiguration protocol (spec.md §4.4).
package task

import (
	"time"

	"github.com/zzl221000/springql/aggregate"
	"github.com/zzl221000/springql/expr"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/springqlerr"
	"github.com/zzl221000/springql/taskgraph"
	"github.com/zzl221000/springql/window"
)

// State is a task's lifecycle state (spec.md §4.4).
type State int

const (
	Started State = iota
	Stopped
)

// InMemoryPort is the host-facing push/pop surface for a source or sink
// stream that is backed by an in-memory queue reader/writer, rather than a
// foreign adapter. Foreign readers/writers are out of scope (spec.md §1);
// this is the one reader/writer kind the engine itself implements.
type InMemoryPort struct {
	Shape *row.StreamShape
	queue *queue.RowQueue
}

// NewInMemoryPort wraps a RowQueue with the shape rows pushed through it
// must bind to.
func NewInMemoryPort(shape *row.StreamShape, q *queue.RowQueue) *InMemoryPort {
	return &InMemoryPort{Shape: shape, queue: q}
}

// Queue returns the backing RowQueue.
func (p *InMemoryPort) Queue() *queue.RowQueue { return p.queue }

// Runtime is the shared plumbing every Task kind needs to run: the queue
// repository to read/write edges through, and the in-memory ports for
// source/sink streams that terminate at the host boundary.
type Runtime struct {
	Repo     *queue.Repository
	InPorts  map[string]*InMemoryPort // reader name -> host-facing source port
	OutPorts map[string]*InMemoryPort // writer name -> host-facing sink port

	// Watermarks is keyed by the WindowQueueID of the edge a row arrives on
	// (not by task), since the late-row drop decision in spec.md §4.9 step
	// (a) happens at the moment a row is pushed into that specific window
	// queue, and a window queue has exactly one consuming pump by
	// construction (taskgraph.Build allocates one per producer/consumer
	// pair).
	Watermarks map[queue.WindowQueueID]*window.Watermark
	Panes      map[taskgraph.ID]*window.Panes
	Exprs      map[string]*expr.Node // compiled cache, keyed by source text

	// EdgePushTimeout bounds a blocking push onto a downstream task-to-task
	// edge queue (config.Config.QueuePushTimeout, spec.md §5 "Worker: may
	// block briefly on queue push when downstream is full ... after which it
	// yields and retries"). Zero selects the non-blocking contract: a full
	// edge fails immediately with Unavailable instead of retrying.
	EdgePushTimeout time.Duration
}

// Task is a running instance bound to one taskgraph.Task node.
type Task struct {
	Node  *taskgraph.Task
	State State

	rt *Runtime
}

// New binds a Task to its graph node and runtime plumbing.
func New(node *taskgraph.Task, rt *Runtime) *Task {
	return &Task{Node: node, State: Started, rt: rt}
}

// Stop transitions the task to Stopped; only a Stopped task may be dropped
// during reconfiguration (spec.md §4.4).
func (t *Task) Stop() { t.State = Stopped }

// RunOnce executes one unit of work for this task: for a Source task, reads
// one row from its in-memory input port (if any is pending) and fans it out
// to every output edge; for a Pump task, runs the Collect/Project-Filter/
// Aggregate/Emit subtask chain over one input bundle; for a Sink task,
// drains one row from its input queue into its in-memory output port.
// Returns (didWork, error): didWork is false when there was nothing runnable,
// which the scheduler/worker interprets as "this task wasn't actually ready".
func (t *Task) RunOnce() (bool, error) {
	switch t.Node.Kind {
	case taskgraph.Source:
		return t.runSource()
	case taskgraph.Pump:
		return t.runPump()
	case taskgraph.Sink:
		return t.runSink()
	default:
		return false, springqlerr.New(springqlerr.Sql, "unknown task kind %v", t.Node.Kind)
	}
}

func (t *Task) runSource() (bool, error) {
	port, ok := t.rt.InPorts[t.Node.Name]
	if !ok {
		return false, nil
	}
	r, ok := port.Queue().Use()
	if !ok {
		return false, nil
	}
	for _, out := range t.Node.Outputs {
		if err := pushToEdge(t.rt, out.QueueID, r); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (t *Task) runSink() (bool, error) {
	if len(t.Node.Inputs) == 0 {
		return false, nil
	}
	in := t.Node.Inputs[0]
	rq, ok := t.rt.Repo.Row(in.QueueID.RowID)
	if !ok {
		return false, nil
	}
	r, ok := rq.Use()
	if !ok {
		return false, nil
	}
	if port, ok := t.rt.OutPorts[t.Node.Name]; ok {
		if err := port.Queue().Push(r, t.rt.EdgePushTimeout); err != nil {
			return true, err
		}
	}
	return true, nil
}

func pushToEdge(rt *Runtime, qid queue.ID, r *row.Row) error {
	switch qid.Kind {
	case queue.KindRow:
		rq, ok := rt.Repo.Row(qid.RowID)
		if !ok {
			return springqlerr.New(springqlerr.Unavailable, "no such row queue %s", qid.RowID)
		}
		return rq.Push(r, rt.EdgePushTimeout)
	case queue.KindWindow:
		wq, ok := rt.Repo.Window(qid.WinID)
		if !ok {
			return springqlerr.New(springqlerr.Unavailable, "no such window queue %s", qid.WinID)
		}
		rowtime, ok := r.Rowtime()
		if !ok {
			return springqlerr.New(springqlerr.Sql, "row has no ROWTIME for windowed edge")
		}
		wm := rt.windowWatermark(qid.WinID, qid.AllowedDelay)
		_, err := wq.Push(r, rowtime, wm.AsTimestamp(), rt.EdgePushTimeout)
		if err == nil {
			wm.Update(rowtime)
		}
		return err
	default:
		return springqlerr.New(springqlerr.Sql, "unknown queue kind")
	}
}

func (t *Task) compile(source string) (*expr.Node, error) {
	if n, ok := t.rt.Exprs[source]; ok {
		return n, nil
	}
	n, err := expr.Compile(source)
	if err != nil {
		return nil, err
	}
	t.rt.Exprs[source] = n
	return n, nil
}

// windowWatermark returns the Watermark owned by the window queue id,
// creating it (with allowedDelay) on first use. Both pushToEdge and the
// consuming pump's collectFromWindowQueue pass qid.AllowedDelay, the
// consuming pump's configured tolerance carried on queue.ID by
// taskgraph.Build, so whichever call happens to run first seeds the cache
// with the same value the other would have used.
func (rt *Runtime) windowWatermark(id queue.WindowQueueID, allowedDelay time.Duration) *window.Watermark {
	wm, ok := rt.Watermarks[id]
	if !ok {
		wm = window.NewWatermark(allowedDelay)
		rt.Watermarks[id] = wm
	}
	return wm
}

func (t *Task) panes(wp window.Params, fn aggregate.Function) *window.Panes {
	ps, ok := t.rt.Panes[t.Node.ID]
	if !ok {
		ps = window.NewPanes(wp, fn)
		t.rt.Panes[t.Node.ID] = ps
	}
	return ps
}
