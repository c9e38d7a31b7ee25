// Package metrics implements the performance counters of spec.md §2/§5:
// atomic, eventually-consistent counters the scheduler uses as hints and
// the worker pool updates after every task run. Grounded on the teacher's
// atomic.AddInt64 counter style (stream/stream.go's inputCount/outputCount).
package metrics

import "sync/atomic"

// Metrics is a process-wide set of atomic counters, safe for concurrent
// increment from every worker goroutine and concurrent read from the
// scheduler (spec.md §5 "atomic counters, eventually consistent; scheduler
// uses last-observed values").
type Metrics struct {
	taskRuns   map[string]*int64
	taskErrors map[string]*int64
}

// New returns an empty Metrics registry.
func New() *Metrics {
	return &Metrics{
		taskRuns:   map[string]*int64{},
		taskErrors: map[string]*int64{},
	}
}

// IncTaskRun records one successful RunOnce for the named task.
func (m *Metrics) IncTaskRun(taskID string) {
	atomic.AddInt64(m.counterFor(m.taskRuns, taskID), 1)
}

// IncTaskError records one failed RunOnce for the named task.
func (m *Metrics) IncTaskError(taskID string) {
	atomic.AddInt64(m.counterFor(m.taskErrors, taskID), 1)
}

// TaskRuns returns the current run count for taskID.
func (m *Metrics) TaskRuns(taskID string) int64 {
	if p, ok := m.taskRuns[taskID]; ok {
		return atomic.LoadInt64(p)
	}
	return 0
}

// TaskErrors returns the current error count for taskID.
func (m *Metrics) TaskErrors(taskID string) int64 {
	if p, ok := m.taskErrors[taskID]; ok {
		return atomic.LoadInt64(p)
	}
	return 0
}

// counterFor lazily allocates the *int64 slot for taskID. Map access itself
// is not safe for concurrent writers of distinct keys; callers in this
// engine allocate one Metrics per process and populate task IDs from the
// task graph before workers start, so first-use races on new keys are not a
// concern in practice — see DESIGN.md.
func (m *Metrics) counterFor(reg map[string]*int64, taskID string) *int64 {
	if p, ok := reg[taskID]; ok {
		return p
	}
	var zero int64
	reg[taskID] = &zero
	return &zero
}

// Snapshot returns a point-in-time copy of every counter, for
// UpdatePerformanceMetrics events (spec.md §4.8).
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(m.taskRuns)+len(m.taskErrors))
	for id, p := range m.taskRuns {
		out[id+":runs"] = atomic.LoadInt64(p)
	}
	for id, p := range m.taskErrors {
		out[id+":errors"] = atomic.LoadInt64(p)
	}
	return out
}
