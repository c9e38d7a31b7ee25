/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package springql is the embedding API of spec.md §6: open a Pipeline,
// apply AlterPipeline DDL via Command, push rows into named in-memory
// source queues, and pop rows out of named in-memory sink queues. This is
// the one process-scoped entry point; every other package in this module
// (taskgraph, scheduler, worker, reconfig, task, ...) is wired together
// here, the way the teacher's root Streamsql type wires stream.Stream,
// rsql and its Option-configured buffers together in one struct.
package springql

import (
	"sync"
	"time"

	"github.com/zzl221000/springql/config"
	"github.com/zzl221000/springql/event"
	"github.com/zzl221000/springql/expr"
	"github.com/zzl221000/springql/logger"
	"github.com/zzl221000/springql/metrics"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
	"github.com/zzl221000/springql/reconfig"
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/scheduler"
	"github.com/zzl221000/springql/springqlerr"
	"github.com/zzl221000/springql/task"
	"github.com/zzl221000/springql/taskgraph"
	"github.com/zzl221000/springql/window"
	"github.com/zzl221000/springql/worker"
)

var initOnce sync.Once

// Pipeline is the host-facing handle returned by Open (spec.md §6
// "open() -> Pipeline").
type Pipeline struct {
	cfg     config.Config
	repo    *queue.Repository
	coord   *reconfig.Coordinator
	sched   *scheduler.Scheduler
	metrics *metrics.Metrics
	rt      *task.Runtime
	pool    *worker.Pool

	mu sync.Mutex // serializes Command calls; reconfig.Coordinator enforces the single-writer lease beneath it
}

// Open allocates a new engine instance with cfg.NWorkerThreads workers and
// starts the pool immediately; there is no separate Start call (spec.md §6
// "open(options) -> Pipeline, already running"). Logger initialization is
// process-wide and idempotent (spec.md §9 "logger must be initialized
// exactly once"), guarded by initOnce the same way the teacher guards its
// package-level default logger.
func Open(opts ...config.Option) *Pipeline {
	initOnce.Do(func() {
		logger.SetDefault(logger.New(logger.Info, nil))
	})

	cfg := config.New(opts...)
	events := event.NewQueue()
	repo := queue.NewRepository()
	coord := reconfig.NewCoordinator(repo, events, cfg.QueueCapacityRows)

	p := &Pipeline{
		cfg:     cfg,
		repo:    repo,
		coord:   coord,
		metrics: metrics.New(),
		rt:      newRuntime(repo, cfg.QueuePushTimeout),
	}
	p.sched = scheduler.New(coord.Current().Graph, p.taskReady)
	p.pool = worker.NewPool(cfg.NWorkerThreads, coord, p.sched, p.metrics, p.rt)
	p.pool.Start()

	return p
}

// newRuntime builds the task.Runtime plumbing shared by every worker.
// edgePushTimeout bounds the bounded-wait-then-retry contract every
// task-to-task edge push follows (spec.md §5); it mirrors
// config.Config.QueuePushTimeout, the same bound the host-facing Pipeline.
// Push already applies to the source port push.
func newRuntime(repo *queue.Repository, edgePushTimeout time.Duration) *task.Runtime {
	return &task.Runtime{
		Repo:            repo,
		InPorts:         map[string]*task.InMemoryPort{},
		OutPorts:        map[string]*task.InMemoryPort{},
		Watermarks:      map[queue.WindowQueueID]*window.Watermark{},
		Panes:           map[taskgraph.ID]*window.Panes{},
		Exprs:           map[string]*expr.Node{},
		EdgePushTimeout: edgePushTimeout,
	}
}

// Command applies one AlterPipelineCommand the (out-of-scope) SQL planner
// produced from DDL text (spec.md §1, §6): the parser and planner are
// external collaborators this engine never implements, so callers hand in
// already-built pipeline.AlterPipelineCommand values (via pipeline.
// NewCreateStream, NewCreatePump, ...) rather than raw SQL strings.
func (p *Pipeline) Command(cmd pipeline.AlterPipelineCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp, err := p.coord.Apply(cmd)
	if err != nil {
		return err
	}
	p.sched.NotifyPipelineUpdate(cp.Graph)
	p.wirePort(cmd, cp)
	return nil
}

// wirePort allocates the host-facing in-memory port a CreateSourceReader or
// CreateSinkWriter command introduces. Readers/writers of any other Kind
// are foreign adapters outside this engine's scope (spec.md §1); RunOnce
// for a task bound to one simply finds no port and reports no work done.
func (p *Pipeline) wirePort(cmd pipeline.AlterPipelineCommand, cp *reconfig.CurrentPipeline) {
	switch cmd.Kind {
	case pipeline.CreateSourceReader:
		r := cmd.SourceReader
		if r.Kind != pipeline.ReaderInMemoryQueue {
			return
		}
		shape := cp.Model.Streams[r.Stream].Shape
		q := queue.NewRowQueue(queue.RowQueueID("port:"+r.Name), p.cfg.QueueCapacityRows)
		p.rt.InPorts[r.Name] = task.NewInMemoryPort(shape, q)

	case pipeline.CreateSinkWriter:
		w := cmd.SinkWriter
		if w.Kind != pipeline.WriterInMemoryQueue {
			return
		}
		shape := cp.Model.Streams[w.Stream].Shape
		q := queue.NewRowQueue(queue.RowQueueID("port:"+w.Name), p.cfg.QueueCapacityRows)
		p.rt.OutPorts[w.Name] = task.NewInMemoryPort(shape, q)
	}
}

// taskReady reports whether a task has runnable input, for the scheduler's
// rotation scan (spec.md §4.5 "the set of tasks whose input queue is
// non-empty").
func (p *Pipeline) taskReady(id taskgraph.ID) bool {
	cp := p.coord.Current()
	t, ok := cp.Graph.ByID(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case taskgraph.Source:
		port, ok := p.rt.InPorts[t.Name]
		return ok && !port.Queue().IsEmpty()
	case taskgraph.Sink:
		if len(t.Inputs) == 0 {
			return false
		}
		rq, ok := p.repo.Row(t.Inputs[0].QueueID.RowID)
		return ok && !rq.IsEmpty()
	default: // Pump
		for _, in := range t.Inputs {
			switch in.QueueID.Kind {
			case queue.KindRow:
				if rq, ok := p.repo.Row(in.QueueID.RowID); ok && !rq.IsEmpty() {
					return true
				}
			case queue.KindWindow:
				if wq, ok := p.repo.Window(in.QueueID.WinID); ok && wq.Len() > 0 {
					return true
				}
			}
		}
		return false
	}
}

// Push enqueues a SchemalessRow into the named in-memory source queue
// (spec.md §6 "push(reader_name, row)"). Fails with Unavailable if no such
// reader port exists or the queue stays full past QueuePushTimeout, and
// with InvalidFormat if the row is malformed for its shape.
func (p *Pipeline) Push(readerName string, data row.SchemalessRow) error {
	port, ok := p.rt.InPorts[readerName]
	if !ok {
		return springqlerr.New(springqlerr.Unavailable, "no such source reader %q", readerName)
	}
	r, err := row.NewRowFromSchemaless(port.Shape, data)
	if err != nil {
		return err
	}
	return port.Queue().Push(r, p.cfg.QueuePushTimeout)
}

// Pop blocks until a row is available at the named in-memory sink queue
// and returns it (spec.md §6 "pop(writer_name) -> Row, blocking").
func (p *Pipeline) Pop(writerName string) (*row.Row, error) {
	port, ok := p.rt.OutPorts[writerName]
	if !ok {
		return nil, springqlerr.New(springqlerr.Unavailable, "no such sink writer %q", writerName)
	}
	for {
		if r, ok := port.Queue().Use(); ok {
			return r, nil
		}
		time.Sleep(p.cfg.WorkerPollInterval)
	}
}

// PopNonBlocking returns a row immediately if one is already queued, or
// (nil, false) otherwise (spec.md §6 "pop_non_blocking(writer_name) ->
// Option<Row>").
func (p *Pipeline) PopNonBlocking(writerName string) (*row.Row, bool) {
	port, ok := p.rt.OutPorts[writerName]
	if !ok {
		return nil, false
	}
	return port.Queue().Use()
}

// Close stops every worker goroutine and waits for their current cycle to
// finish. It does not clear any queue: rows still queued stay in place and
// are no longer processed.
func (p *Pipeline) Close() {
	p.pool.Stop()
}
