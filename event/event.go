// Package event implements the process-wide publish/subscribe event queue
// of spec.md §4.8: UpdatePipeline and UpdatePerformanceMetrics events,
// fanned out to independent subscriber channels so each EventPoll handle
// sees every event in publication order with no cross-subscriber ordering
// guarantee. Grounded on the teacher's own channel-based fan-out idiom
// (stream/stream.go's dataChan/resultChan/done channels feeding
// independent goroutines) rather than a callback-list.
package event

import (
	"sync"

	"github.com/zzl221000/springql/pipeline"
)

// Kind tags which event variant an Event carries.
type Kind int

const (
	UpdatePipeline Kind = iota
	UpdatePerformanceMetrics
)

// Event is the tagged union spec.md §4.8 describes. Exactly one of
// PipelineVersion or Metrics is meaningful, per Kind.
type Event struct {
	Kind Kind

	// UpdatePipeline payload.
	PipelineVersion pipeline.Version

	// UpdatePerformanceMetrics payload.
	Metrics map[string]int64
}

// bufferedSubscriber queue size: generous enough that a worker polling once
// per cycle never blocks the publisher, matching the non-blocking contract
// of EventPoll.Next.
const subscriberBuffer = 64

// Queue is the process-scoped singleton event fan-out registry (spec.md §9
// "the event queue is the only other process-scoped singleton and is
// created during open()").
type Queue struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewQueue returns an empty event Queue.
func NewQueue() *Queue {
	return &Queue{subs: map[int]chan Event{}}
}

// Subscribe registers a new subscriber and returns its EventPoll handle.
func (q *Queue) Subscribe() *EventPoll {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.next
	q.next++
	ch := make(chan Event, subscriberBuffer)
	q.subs[id] = ch
	return &EventPoll{id: id, ch: ch, q: q}
}

// Publish fans out ev to every current subscriber, in publication order per
// subscriber. A subscriber whose buffer is full drops the event rather than
// blocking the publisher — the worker main loop re-reads
// CurrentPipeline/metrics on its own cadence regardless, so a dropped event
// only delays, never loses, convergence.
func (q *Queue) Publish(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// unsubscribe removes a subscriber, called by EventPoll.Close.
func (q *Queue) unsubscribe(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.subs, id)
}

// EventPoll is a per-subscriber handle returning at most one event per
// call, non-blocking (spec.md §4.8).
type EventPoll struct {
	id int
	ch chan Event
	q  *Queue
}

// Next returns the next pending event for this subscriber, if any.
func (p *EventPoll) Next() (Event, bool) {
	select {
	case ev := <-p.ch:
		return ev, true
	default:
		return Event{}, false
	}
}

// Close unregisters this subscriber from the queue.
func (p *EventPoll) Close() {
	p.q.unsubscribe(p.id)
}
