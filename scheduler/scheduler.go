// Package scheduler implements the flow-efficient scheduler of spec.md
// §4.5: given the current task graph, precompute a deterministic linear
// rotation honoring R1-R4, then hand each idle worker the next runnable
// task via a per-worker cursor. Grounded on the original engine's
// task_executor/scheduler.rs (a Scheduler trait with
// notify_pipeline_update/next_task(worker_state)) and
// scheduler/flow_efficient_scheduler.rs (sequential task groups + rotation).
package scheduler

import (
	"sync"

	"github.com/zzl221000/springql/taskgraph"
)

// WorkerState is the scheduler-opaque cursor a worker carries between
// next_task calls — its position in the rotation.
type WorkerState struct {
	cursor int
}

// Scheduler holds the precomputed rotation for the current task graph and
// dispatches runnable tasks to workers, enforcing R1 (one in-flight row per
// task) via the running set. R3/R4 (multi-in node hints) have no separate
// bookkeeping; only the rotation order reflects the graph.
type Scheduler struct {
	mu       sync.Mutex
	graph    *taskgraph.Graph
	rotation []taskgraph.ID

	// running marks tasks a worker currently holds (R1: a worker holds at
	// most one in-flight row per task instance; no two workers may be
	// inside the same task at once, spec.md §8).
	running map[taskgraph.ID]bool

	// ReadyCheck reports whether a task currently has runnable input: a
	// pending row in its input queue (non-source) or pending input at its
	// reader (source). Supplied by the caller (worker pool wiring) since
	// the scheduler itself doesn't own queue state.
	ReadyCheck func(taskgraph.ID) bool
}

// New builds a Scheduler from the given graph's precomputed topological
// rotation (spec.md §4.5 "the scheduler ... precomputes a deterministic
// linear order honoring R1-R4"; tie-break is leftmost outgoing edge,
// already implemented by taskgraph.Graph.TopologicalOrder).
func New(g *taskgraph.Graph, readyCheck func(taskgraph.ID) bool) *Scheduler {
	return &Scheduler{
		graph:      g,
		rotation:   g.TopologicalOrder(),
		running:    map[taskgraph.ID]bool{},
		ReadyCheck: readyCheck,
	}
}

// NotifyPipelineUpdate replaces the rotation for a new task graph version,
// called by Pipeline.Command and by each worker's UpdatePipeline event
// handler after the coordinator's atomic swap (spec.md
// §4.6 step 7: "the scheduler ... re-read the graph on next cycle").
func (s *Scheduler) NotifyPipelineUpdate(g *taskgraph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
	s.rotation = g.TopologicalOrder()
	s.running = map[taskgraph.ID]bool{}
}

// NextTask returns the next runnable task in the rotation starting from the
// worker's cursor, and the worker's advanced state. Returns (zero, state,
// false) when nothing is runnable, signaling the worker to back off and
// re-poll (spec.md §4.5 "if none is runnable it returns empty").
func (s *Scheduler) NextTask(ws WorkerState) (taskgraph.ID, WorkerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.rotation)
	if n == 0 {
		return "", ws, false
	}
	for i := 0; i < n; i++ {
		idx := (ws.cursor + i) % n
		id := s.rotation[idx]
		if s.running[id] {
			continue
		}
		if s.ReadyCheck != nil && !s.ReadyCheck(id) {
			continue
		}
		s.running[id] = true
		return id, WorkerState{cursor: (idx + 1) % n}, true
	}
	return "", ws, false
}

// Release marks a task as no longer held by any worker, once its RunOnce
// call returns (R1: at most one in-flight row per task instance).
func (s *Scheduler) Release(id taskgraph.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// SequentialGroup returns the maximal chain of tasks starting at id that a
// worker should run to completion before switching (R2), following
// single-input/single-output edges until a multi-in or multi-out node is
// reached (spec.md §4.5, glossary "Sequential task group").
func (s *Scheduler) SequentialGroup(id taskgraph.ID) []taskgraph.ID {
	group := []taskgraph.ID{id}
	cur, ok := s.graph.ByID(id)
	if !ok {
		return group
	}
	for len(cur.Outputs) == 1 {
		next, ok := s.graph.ByID(cur.Outputs[0].ConsumerTaskID)
		if !ok || len(next.Inputs) != 1 {
			break
		}
		group = append(group, next.ID)
		cur = next
	}
	return group
}
