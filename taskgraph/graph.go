// Package taskgraph builds the immutable task graph snapshot (spec.md §3,
// §4.3) from a pipeline.Model: one source task per SourceReaderModel (the
// graph's entry points; no separate root node is stored), one pump task per
// PumpModel, one sink task per SinkWriterModel, each
// carrying the queue.IDs its input edges are bound to.
package taskgraph

import (
	"fmt"
	"sort"
	"time"

	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/queue"
)

// Kind tags which of {Source, Pump, Sink} a Task is.
type Kind int

const (
	Source Kind = iota
	Pump
	Sink
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "Source"
	case Pump:
		return "Pump"
	case Sink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// ID is a task's stable identity, persisted across pipeline versions as
// long as the task survives (spec.md §3 "Task").
type ID string

// InputEdge is one upstream edge feeding a task.
type InputEdge struct {
	UpstreamStream string
	QueueID        queue.ID
}

// OutputEdge is one downstream consumer a producing task must fan rows out
// to — a stream node with more than one consumer is a "multi-out node" in
// the flow-efficient scheduler's terms (spec.md §4.5).
type OutputEdge struct {
	ConsumerTaskID ID
	QueueID        queue.ID
}

// Task is one node of the task graph: a source reader, a pump, or a sink
// writer, plus the queue wiring the graph builder computed for it.
type Task struct {
	ID   ID
	Kind Kind
	Name string // the underlying reader/pump/writer name

	Inputs  []InputEdge
	Outputs []OutputEdge

	// Model-specific payload; exactly one is non-nil depending on Kind.
	Reader *pipeline.SourceReaderModel
	Pump   *pipeline.PumpModel
	Writer *pipeline.SinkWriterModel

	// DownstreamStream is the stream this task's output feeds (empty for
	// Sink tasks, which drain out of the graph).
	DownstreamStream string
}

// Graph is the immutable snapshot derived from one pipeline.Model version.
type Graph struct {
	Version pipeline.Version
	Tasks   []*Task
	byID    map[ID]*Task
}

// ByID looks up a task by identity.
func (g *Graph) ByID(id ID) (*Task, bool) {
	t, ok := g.byID[id]
	return t, ok
}

func sourceTaskID(readerName string) ID { return ID("source:" + readerName) }
func pumpTaskID(pumpName string) ID     { return ID("pump:" + pumpName) }
func sinkTaskID(writerName string) ID   { return ID("sink:" + writerName) }

// Build derives a Graph from model. For every stream, it finds the tasks
// that read it (pumps whose Upstreams include it, and sink writers bound to
// it) in registration order, and resolves one queue per (producer, consumer)
// edge: a WindowQueue when the consuming pump is windowed, a RowQueue
// otherwise (spec.md §4.3 rule 3). Edge identity is the deterministic
// "producer->consumer" name, so an edge that survives unchanged from a prior
// version resolves to the same RowQueueID/WindowQueueID; Build only
// allocates a fresh queue when the repository doesn't already hold one for
// that ID, so a surviving edge keeps its buffered rows across a
// reconfiguration rather than being replaced by an empty queue. Build does
// not check that pumps and writers reference defined streams (that check
// lives in pipeline.Model.Apply) and always returns a nil error.
func Build(model *pipeline.Model, version pipeline.Version, queueCapacity int, repo *queue.Repository) (*Graph, error) {
	g := &Graph{Version: version, byID: map[ID]*Task{}}

	// index consumers of each stream, in registration order.
	pumpConsumersOf := map[string][]*pipeline.PumpModel{}
	for _, name := range model.PumpOrder {
		p := model.Pumps[name]
		for _, up := range p.Upstreams {
			pumpConsumersOf[up] = append(pumpConsumersOf[up], p)
		}
	}
	writerConsumersOf := map[string][]*pipeline.SinkWriterModel{}
	for _, name := range model.WriterOrder {
		w := model.Writers[name]
		writerConsumersOf[w.Stream] = append(writerConsumersOf[w.Stream], w)
	}

	addTask := func(t *Task) {
		g.Tasks = append(g.Tasks, t)
		g.byID[t.ID] = t
	}

	// 1. one source task per source reader.
	sourceTasks := map[string]*Task{} // reader name -> task
	for _, name := range model.ReaderOrder {
		r := model.Readers[name]
		t := &Task{ID: sourceTaskID(r.Name), Kind: Source, Name: r.Name, Reader: r, DownstreamStream: r.Stream}
		sourceTasks[r.Name] = t
		addTask(t)
	}

	// 2. one pump task per pump, inputs computed below once every task
	// exists; allocate now so edges can reference them.
	pumpTasks := map[string]*Task{}
	for _, name := range model.PumpOrder {
		p := model.Pumps[name]
		t := &Task{ID: pumpTaskID(p.Name), Kind: Pump, Name: p.Name, Pump: p, DownstreamStream: p.Downstream}
		pumpTasks[p.Name] = t
		addTask(t)
	}

	// 3. one sink task per sink writer.
	sinkTasks := map[string]*Task{}
	for _, name := range model.WriterOrder {
		w := model.Writers[name]
		t := &Task{ID: sinkTaskID(w.Name), Kind: Sink, Name: w.Name, Writer: w}
		sinkTasks[w.Name] = t
		addTask(t)
	}

	// 4. wire edges: for every stream, find its producers (source readers
	// bound to it, or pumps whose Downstream is it) and its consumers
	// (pumps reading it, or writers bound to it); allocate one queue per
	// (producer, consumer) pair and record it on both ends.
	producersOf := map[string][]*Task{}
	for _, name := range model.ReaderOrder {
		r := model.Readers[name]
		producersOf[r.Stream] = append(producersOf[r.Stream], sourceTasks[r.Name])
	}
	for _, name := range model.PumpOrder {
		p := model.Pumps[name]
		producersOf[p.Downstream] = append(producersOf[p.Downstream], pumpTasks[p.Name])
	}

	for _, streamName := range model.StreamOrder {
		producers := producersOf[streamName]

		var consumers []*Task
		for _, p := range pumpConsumersOf[streamName] {
			consumers = append(consumers, pumpTasks[p.Name])
		}
		for _, w := range writerConsumersOf[streamName] {
			consumers = append(consumers, sinkTasks[w.Name])
		}

		for _, consumer := range consumers {
			windowed := consumer.Kind == Pump && consumer.Pump.Query.Window != nil
			var allowedDelay time.Duration
			if windowed {
				allowedDelay = time.Duration(consumer.Pump.Query.Window.AllowedDelay)
			}
			for _, producer := range producers {
				edgeName := fmt.Sprintf("%s->%s", producer.ID, consumer.ID)
				var qid queue.ID
				if windowed {
					winID := queue.WindowQueueID(edgeName)
					// Reuse the queue already in the repository when this
					// edge survives from a prior version, so in-flight rows
					// buffered on it aren't replaced by an empty queue
					// (spec.md §4.6 step 5).
					if _, ok := repo.Window(winID); !ok {
						repo.PutWindow(queue.NewWindowQueue(winID, queueCapacity))
					}
					qid = queue.ID{Kind: queue.KindWindow, WinID: winID, AllowedDelay: allowedDelay}
				} else {
					rowID := queue.RowQueueID(edgeName)
					if _, ok := repo.Row(rowID); !ok {
						repo.PutRow(queue.NewRowQueue(rowID, queueCapacity))
					}
					qid = queue.ID{Kind: queue.KindRow, RowID: rowID}
				}
				consumer.Inputs = append(consumer.Inputs, InputEdge{UpstreamStream: streamName, QueueID: qid})
				producer.Outputs = append(producer.Outputs, OutputEdge{ConsumerTaskID: consumer.ID, QueueID: qid})
			}
		}
	}

	return g, nil
}

// TopologicalOrder returns task IDs in a deterministic flow order: sources
// first (in registration order), then every other task ordered so a task
// always follows at least one of its producers — ties broken by leftmost
// (registration-order) outgoing edge, matching spec.md §4.5's tie-break and
// §9's "always picks the leftmost outgoing edge".
func (g *Graph) TopologicalOrder() []ID {
	position := map[ID]int{}
	for i, t := range g.Tasks {
		position[t.ID] = i
	}

	indegree := map[ID]int{}
	for _, t := range g.Tasks {
		indegree[t.ID] = 0
	}
	for _, t := range g.Tasks {
		for _, out := range t.Outputs {
			indegree[out.ConsumerTaskID]++
		}
	}

	byPosition := func(ids []ID) {
		sort.Slice(ids, func(i, j int) bool { return position[ids[i]] < position[ids[j]] })
	}

	var order []ID
	var ready []ID
	for _, t := range g.Tasks {
		if indegree[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}
	byPosition(ready)

	visited := map[ID]bool{}
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)

		t := g.byID[id]
		var newlyReady []ID
		for _, out := range t.Outputs {
			indegree[out.ConsumerTaskID]--
			if indegree[out.ConsumerTaskID] == 0 {
				newlyReady = append(newlyReady, out.ConsumerTaskID)
			}
		}
		byPosition(newlyReady)
		ready = append(ready, newlyReady...)
		byPosition(ready)
	}
	return order
}
