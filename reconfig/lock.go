// Package reconfig implements the pipeline-update protocol of spec.md §4.6:
// an exactly-one-writer lock (TaskExecutorLock), the atomic CurrentPipeline
// snapshot, and a Coordinator that applies an AlterPipelineCommand,
// rebuilds the task graph, and swaps it in while workers drain their
// current row. Grounded on spec.md §9's explicit re-architecture note
// ("reader-writer lock with the invariant that writers wait for all
// readers, plus an atomic snapshot pointer") and the teacher's
// sync.RWMutex-guarded default-logger pattern (logger/logger.go in this
// module) for the "rare writer, frequent reader" shape.
package reconfig

import (
	"sync"
	"sync/atomic"

	"github.com/zzl221000/springql/springqlerr"
)

// TaskExecutorLock is the reader-writer lease of spec.md §4.6/§5: the
// reconfig coordinator is the sole writer and excludes all task execution;
// workers are readers and are mutually compatible. The reader side uses
// TryRLock, never the blocking RLock — a worker that can't acquire a lease (writer
// pending or held) backs off and re-polls, rather than waiting (spec.md
// §4.6: "try_task_execution fails with a warning when a writer is
// pending").
type TaskExecutorLock struct {
	mu sync.RWMutex
}

// TryTaskExecution attempts to acquire a reader lease without blocking.
// Returns a release function and true on success; false when a writer
// holds or is waiting for the lock.
func (l *TaskExecutorLock) TryTaskExecution() (release func(), ok bool) {
	if !l.mu.TryRLock() {
		return nil, false
	}
	return l.mu.RUnlock, true
}

// AcquireWrite blocks until every outstanding reader lease has dropped,
// then returns a release function (spec.md §4.6 step 2).
func (l *TaskExecutorLock) AcquireWrite() (release func()) {
	l.mu.Lock()
	return l.mu.Unlock
}

// Snapshot is an atomically-swappable pointer to the current pipeline
// state, read lock-free on the worker hot path (spec.md §9).
type Snapshot struct {
	ptr atomic.Pointer[CurrentPipeline]
}

// Load returns the current snapshot. Never blocks.
func (s *Snapshot) Load() *CurrentPipeline {
	return s.ptr.Load()
}

// Store atomically installs a new snapshot (spec.md §4.6 step 6).
func (s *Snapshot) Store(cp *CurrentPipeline) {
	s.ptr.Store(cp)
}

// ErrWriterPending is the error for a lease refused while a reconfiguration
// is in progress. No engine code returns it: the worker loop backs off and
// re-polls when TryTaskExecution reports false.
var ErrWriterPending = springqlerr.New(springqlerr.Unavailable, "pipeline reconfiguration in progress")
