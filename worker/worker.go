// Package worker implements the fixed worker pool of spec.md §4.7: each of
// N workers runs main_loop_cycle (ask the scheduler for a task, acquire a
// task-execution lease, run it to completion, update metrics) then
// handle_events (drain {UpdatePipeline, UpdatePerformanceMetrics} and
// refresh its cached pipeline/metrics), in a loop that exits when stopped.
// Grounded on the original engine's worker/worker_thread.rs WorkerThread
// trait (main_loop_cycle + handle_events over a goroutine instead of a
// std::thread), generalized from its single-purpose subclasses to the one
// loop this engine needs.
package worker

import (
	"sync"
	"time"

	"github.com/zzl221000/springql/event"
	"github.com/zzl221000/springql/metrics"
	"github.com/zzl221000/springql/reconfig"
	"github.com/zzl221000/springql/scheduler"
	"github.com/zzl221000/springql/task"
)

// defaultPollInterval is how long a worker sleeps between cycles when the
// scheduler returned no runnable task (spec.md §5 "spins-with-sleep when
// scheduler returns empty").
const defaultPollInterval = 2 * time.Millisecond

// Pool is the fixed set of worker goroutines.
type Pool struct {
	n            int
	coordinator  *reconfig.Coordinator
	scheduler    *scheduler.Scheduler
	metrics      *metrics.Metrics
	runtime      *task.Runtime
	pollInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPool constructs a Pool of n workers sharing one task.Runtime (the
// queue repository and in-memory ports are process-wide; only the pipeline
// graph they execute against changes across reconfigurations).
func NewPool(n int, coord *reconfig.Coordinator, sched *scheduler.Scheduler, m *metrics.Metrics, rt *task.Runtime) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{
		n:            n,
		coordinator:  coord,
		scheduler:    sched,
		metrics:      m,
		runtime:      rt,
		pollInterval: defaultPollInterval,
		stop:         make(chan struct{}),
	}
}

// Start launches all worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

// Stop signals every worker to exit and waits for them to finish their
// current cycle (spec.md §5 "the host signals stop; workers observe it
// between cycles and exit within one task duration").
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) loop() {
	defer p.wg.Done()

	poll := p.coordinator.Events().Subscribe()
	defer poll.Close()

	state := scheduler.WorkerState{}
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		state = p.mainLoopCycle(state)
		p.handleEvents(poll)
	}
}

// mainLoopCycle asks the scheduler for a task, acquires a task-execution
// lease, runs the task to completion, and updates metrics (spec.md §4.7).
func (p *Pool) mainLoopCycle(state scheduler.WorkerState) scheduler.WorkerState {
	id, next, ok := p.scheduler.NextTask(state)
	if !ok {
		time.Sleep(p.pollInterval)
		return next
	}
	defer p.scheduler.Release(id)

	release, ok := p.coordinator.Lock().TryTaskExecution()
	if !ok {
		// a reconfiguration is pending; back off without running the task
		// (spec.md §4.6: "try_task_execution fails ... causing the worker
		// to back off and re-poll").
		time.Sleep(p.pollInterval)
		return next
	}
	defer release()

	cp := p.coordinator.Current()
	t, found := cp.Graph.ByID(id)
	if !found {
		return next
	}

	inst := task.New(t, p.runtime)
	didWork, err := inst.RunOnce()
	if err != nil {
		p.metrics.IncTaskError(string(id))
	} else if didWork {
		p.metrics.IncTaskRun(string(id))
	} else {
		time.Sleep(p.pollInterval)
	}

	return next
}

// handleEvents drains {UpdatePipeline, UpdatePerformanceMetrics} for this
// worker's subscription and refreshes the scheduler's rotation when the
// pipeline changed (spec.md §4.7, §4.8).
func (p *Pool) handleEvents(poll *event.EventPoll) {
	for {
		ev, ok := poll.Next()
		if !ok {
			return
		}
		switch ev.Kind {
		case event.UpdatePipeline:
			p.scheduler.NotifyPipelineUpdate(p.coordinator.Current().Graph)
		case event.UpdatePerformanceMetrics:
			// metrics are read lock-free from p.metrics directly; nothing
			// to refresh here beyond acknowledging the event.
		}
	}
}
