package reconfig

import (
	"github.com/zzl221000/springql/event"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
	"github.com/zzl221000/springql/taskgraph"
)

// CurrentPipeline is the authoritative (pipeline model, derived task graph,
// version) triple spec.md §3 names; exactly one exists at a time and is
// replaced atomically by Coordinator.Apply.
type CurrentPipeline struct {
	Model   *pipeline.Model
	Graph   *taskgraph.Graph
	Version pipeline.Version
}

// Coordinator drives the exactly-one-writer reconfiguration protocol of
// spec.md §4.6. It is the sole writer of a Snapshot; workers only read
// through Snapshot.Load and TaskExecutorLock.TryTaskExecution.
type Coordinator struct {
	lock     TaskExecutorLock
	snapshot Snapshot
	repo     *queue.Repository
	events   *event.Queue
	queueCap int

	version pipeline.Version
}

// NewCoordinator seeds the coordinator with an empty pipeline at version 0.
func NewCoordinator(repo *queue.Repository, events *event.Queue, queueCap int) *Coordinator {
	c := &Coordinator{repo: repo, events: events, queueCap: queueCap}
	model := pipeline.NewModel()
	graph, _ := taskgraph.Build(model, 0, queueCap, repo)
	c.snapshot.Store(&CurrentPipeline{Model: model, Graph: graph, Version: 0})
	return c
}

// Current returns the latest installed snapshot, lock-free.
func (c *Coordinator) Current() *CurrentPipeline {
	return c.snapshot.Load()
}

// Lock exposes the TaskExecutorLock workers take reader leases on.
func (c *Coordinator) Lock() *TaskExecutorLock { return &c.lock }

// Events exposes the event queue UpdatePipeline/UpdatePerformanceMetrics
// are published to, so workers can subscribe (spec.md §4.8).
func (c *Coordinator) Events() *event.Queue { return c.events }

// Apply runs the 8-step protocol of spec.md §4.6 for one AlterPipelineCommand:
//  1. (caller already produced cmd from DDL via the out-of-scope planner)
//  2. acquire the writer-exclusive lease, waiting for running tasks' leases
//  3. apply cmd to a copy of the model, rebuild the task graph, version++
//  4. (task Stop signaling is the worker pool's responsibility on next cycle;
//     this coordinator only withholds the new snapshot until step 6)
//  5. retain/drain/create queues per the old vs. new graph's edge sets
//  6. atomic swap
//  7. broadcast UpdatePipeline
//  8. release the lease
func (c *Coordinator) Apply(cmd pipeline.AlterPipelineCommand) (*CurrentPipeline, error) {
	release := c.lock.AcquireWrite()
	defer release()

	prev := c.snapshot.Load()

	nextModel, err := prev.Model.Apply(cmd)
	if err != nil {
		return nil, err
	}
	c.version = prev.Version.Next()

	nextGraph, err := taskgraph.Build(nextModel, c.version, c.queueCap, c.repo)
	if err != nil {
		return nil, err
	}

	reconcileQueues(prev.Graph, nextGraph, c.repo)

	next := &CurrentPipeline{Model: nextModel, Graph: nextGraph, Version: c.version}
	c.snapshot.Store(next)

	c.events.Publish(event.Event{Kind: event.UpdatePipeline, PipelineVersion: c.version})

	return next, nil
}

// reconcileQueues drops queues that existed in prev but have no surviving
// edge in next — "queues that disappear are drained and discarded" (spec.md
// §4.6 step 5). Queues present in both graphs keep their contents because
// taskgraph.Build only allocates a fresh queue for an edge whose
// RowQueueID/WindowQueueID isn't already in the repository: an edge that
// survives unchanged resolves to the same deterministic producer->consumer
// ID and Build reuses the existing (possibly non-empty) queue handle for it,
// so only truly removed edges need explicit cleanup here.
func reconcileQueues(prev, next *taskgraph.Graph, repo *queue.Repository) {
	if prev == nil {
		return
	}
	nextIDs := map[queue.ID]bool{}
	for _, t := range next.Tasks {
		for _, in := range t.Inputs {
			nextIDs[in.QueueID] = true
		}
	}
	for _, t := range prev.Tasks {
		for _, in := range t.Inputs {
			if nextIDs[in.QueueID] {
				continue
			}
			switch in.QueueID.Kind {
			case queue.KindRow:
				repo.RemoveRow(in.QueueID.RowID)
			case queue.KindWindow:
				repo.RemoveWindow(in.QueueID.WinID)
			}
		}
	}
}
