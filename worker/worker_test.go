package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/event"
	"github.com/zzl221000/springql/metrics"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
	"github.com/zzl221000/springql/reconfig"
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/scheduler"
	"github.com/zzl221000/springql/task"
	"github.com/zzl221000/springql/taskgraph"
	"github.com/zzl221000/springql/value"
)

func shape(name string) *row.StreamShape {
	return &row.StreamShape{StreamName: name, Columns: []row.ColumnDef{{Name: "v", Tag: value.TagI64}}}
}

func buildPoolFixture(t *testing.T) (*Pool, *reconfig.Coordinator, *task.Runtime) {
	t.Helper()
	repo := queue.NewRepository()
	events := event.NewQueue()
	coord := reconfig.NewCoordinator(repo, events, 16)

	_, err := coord.Apply(pipeline.NewCreateSourceStream(&pipeline.StreamModel{Name: "in", Kind: pipeline.StreamSource, Shape: shape("in")}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreateSinkStream(&pipeline.StreamModel{Name: "out", Kind: pipeline.StreamSink, Shape: shape("out")}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreatePump(&pipeline.PumpModel{Name: "p", Upstreams: []string{"in"}, Downstream: "out"}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreateSourceReader(&pipeline.SourceReaderModel{Name: "r", Stream: "in", Kind: pipeline.ReaderInMemoryQueue}))
	require.NoError(t, err)
	cp, err := coord.Apply(pipeline.NewCreateSinkWriter(&pipeline.SinkWriterModel{Name: "w", Stream: "out", Kind: pipeline.WriterInMemoryQueue}))
	require.NoError(t, err)

	rt := &task.Runtime{
		Repo:     repo,
		InPorts:  map[string]*task.InMemoryPort{},
		OutPorts: map[string]*task.InMemoryPort{},
	}
	inQ := queue.NewRowQueue("port:r", 4)
	rt.InPorts["r"] = task.NewInMemoryPort(shape("in"), inQ)
	outQ := queue.NewRowQueue("port:w", 4)
	rt.OutPorts["w"] = task.NewInMemoryPort(shape("out"), outQ)

	m := metrics.New()
	sched := scheduler.New(cp.Graph, func(id taskgraph.ID) bool {
		switch id {
		case taskgraph.ID("source:r"):
			return !inQ.IsEmpty()
		case taskgraph.ID("pump:p"):
			rq, ok := repo.Row(queueInputOf(cp.Graph, "pump:p"))
			return ok && !rq.IsEmpty()
		case taskgraph.ID("sink:w"):
			rq, ok := repo.Row(queueInputOf(cp.Graph, "sink:w"))
			return ok && !rq.IsEmpty()
		}
		return false
	})

	p := NewPool(1, coord, sched, m, rt)
	p.pollInterval = time.Millisecond
	return p, coord, rt
}

func queueInputOf(g *taskgraph.Graph, id string) queue.RowQueueID {
	tNode, ok := g.ByID(taskgraph.ID(id))
	if !ok || len(tNode.Inputs) == 0 {
		return ""
	}
	return tNode.Inputs[0].QueueID.RowID
}

func TestMainLoopCycleRunsReadyTaskAndRecordsMetric(t *testing.T) {
	p, _, rt := buildPoolFixture(t)
	inQ := rt.InPorts["r"].Queue()
	require.NoError(t, inQ.Push(row.NewRowFromValues(shape("in"), []value.Value{value.NewI64(1)}), 0))

	state := scheduler.WorkerState{}
	for i := 0; i < 10; i++ {
		state = p.mainLoopCycle(state)
	}

	assert.EqualValues(t, 1, p.metrics.TaskRuns("source:r"))
}

func TestMainLoopCycleBacksOffUnderPendingWriter(t *testing.T) {
	p, coord, rt := buildPoolFixture(t)
	inQ := rt.InPorts["r"].Queue()
	require.NoError(t, inQ.Push(row.NewRowFromValues(shape("in"), []value.Value{value.NewI64(1)}), 0))

	release := coord.Lock().AcquireWrite()
	defer release()

	before := p.metrics.TaskRuns("source:r")
	p.mainLoopCycle(scheduler.WorkerState{})
	assert.Equal(t, before, p.metrics.TaskRuns("source:r"), "a task must not run while a writer lease is held")
}

func TestHandleEventsRefreshesSchedulerOnPipelineUpdate(t *testing.T) {
	p, coord, rt := buildPoolFixture(t)
	poll := coord.Events().Subscribe()
	defer poll.Close()

	_, err := coord.Apply(pipeline.NewCreateSourceStream(&pipeline.StreamModel{Name: "in2", Kind: pipeline.StreamSource, Shape: shape("in2")}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreateSinkStream(&pipeline.StreamModel{Name: "out2", Kind: pipeline.StreamSink, Shape: shape("out2")}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreatePump(&pipeline.PumpModel{Name: "p2", Upstreams: []string{"in2"}, Downstream: "out2"}))
	require.NoError(t, err)
	_, err = coord.Apply(pipeline.NewCreateSourceReader(&pipeline.SourceReaderModel{Name: "r2", Stream: "in2", Kind: pipeline.ReaderInMemoryQueue}))
	require.NoError(t, err)

	newInQ := queue.NewRowQueue("port:r2", 4)
	rt.InPorts["r2"] = task.NewInMemoryPort(shape("in2"), newInQ)
	require.NoError(t, newInQ.Push(row.NewRowFromValues(shape("in2"), []value.Value{value.NewI64(42)}), 0))

	p.scheduler.ReadyCheck = func(id taskgraph.ID) bool {
		if id == taskgraph.ID("source:r2") {
			return !newInQ.IsEmpty()
		}
		return false
	}

	// before handleEvents observes the update, the scheduler's rotation
	// predates source:r2 and can never select it.
	state := scheduler.WorkerState{}
	for i := 0; i < 5; i++ {
		state = p.mainLoopCycle(state)
	}
	assert.EqualValues(t, 0, p.metrics.TaskRuns("source:r2"))

	p.handleEvents(poll)

	for i := 0; i < 5; i++ {
		state = p.mainLoopCycle(state)
	}
	assert.EqualValues(t, 1, p.metrics.TaskRuns("source:r2"), "after the rotation refresh the new task must become schedulable")
}
