package queue

import (
	"sync/atomic"
	"time"

	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/springqlerr"
)

// RowQueue is a bounded MPSC FIFO of whole Rows. The ring buffer and its
// CAS-protected head/tail/count bookkeeping follow the teacher's
// utils/queue.Queue exactly, generalized from float64 to *row.Row.
type RowQueue struct {
	id   RowQueueID
	data []*row.Row
	head int32
	tail int32
	cap  int32
	count int32

	bytesUsed  int64
	droppedCnt int64
}

// NewRowQueue creates a RowQueue with the given capacity (in rows).
func NewRowQueue(id RowQueueID, capacity int) *RowQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &RowQueue{
		id:   id,
		data: make([]*row.Row, capacity),
		cap:  int32(capacity),
	}
}

func (q *RowQueue) ID() RowQueueID { return q.id }

func (q *RowQueue) IsEmpty() bool { return atomic.LoadInt32(&q.count) == 0 }
func (q *RowQueue) IsFull() bool  { return atomic.LoadInt32(&q.count) == q.cap }

// Push enqueues r. In blocking mode it spins-with-sleep up to timeout while
// the queue is full, then gives up with Unavailable (spec.md §5 "Worker: may
// block briefly on queue push ... bounded wait with timeout, after which it
// yields and retries"). timeout == 0 selects the non-blocking contract:
// Unavailable is returned immediately when full.
func (q *RowQueue) Push(r *row.Row, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if q.tryPush(r) {
			return nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return springqlerr.New(springqlerr.Unavailable, "row queue %s is full", q.id)
		}
		time.Sleep(time.Millisecond)
	}
}

func (q *RowQueue) tryPush(r *row.Row) bool {
	for {
		if q.IsFull() {
			return false
		}
		tail := atomic.LoadInt32(&q.tail)
		next := (tail + 1) % q.cap
		if atomic.CompareAndSwapInt32(&q.tail, tail, next) {
			q.data[tail] = r
			atomic.AddInt32(&q.count, 1)
			atomic.AddInt64(&q.bytesUsed, estimateBytes(r))
			return true
		}
	}
}

// Use pops one row, or reports empty.
func (q *RowQueue) Use() (*row.Row, bool) {
	for {
		if q.IsEmpty() {
			return nil, false
		}
		head := atomic.LoadInt32(&q.head)
		next := (head + 1) % q.cap
		if atomic.CompareAndSwapInt32(&q.head, head, next) {
			r := q.data[head]
			q.data[head] = nil
			atomic.AddInt32(&q.count, -1)
			atomic.AddInt64(&q.bytesUsed, -estimateBytes(r))
			return r, true
		}
	}
}

// Len is the current number of queued rows.
func (q *RowQueue) Len() int { return int(atomic.LoadInt32(&q.count)) }

// BytesUsed is an approximate resident size, for back-pressure metrics.
func (q *RowQueue) BytesUsed() int64 { return atomic.LoadInt64(&q.bytesUsed) }

// estimateBytes is a coarse per-row footprint: a fixed header plus one
// machine word per column. Exact accounting isn't the point — it is used
// only as a monotone proxy for back-pressure decisions.
func estimateBytes(r *row.Row) int64 {
	if r == nil {
		return 0
	}
	return 64 + int64(r.Len())*8
}
