package queue

import "sync"

// Repository maps QueueIds to queue handles with O(1) acquisition and
// fine-grained internal locking — no cross-queue lock is ever held
// simultaneously (spec.md §5 "Shared resource policy").
type Repository struct {
	mu      sync.RWMutex
	rows    map[RowQueueID]*RowQueue
	windows map[WindowQueueID]*WindowQueue
}

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		rows:    map[RowQueueID]*RowQueue{},
		windows: map[WindowQueueID]*WindowQueue{},
	}
}

// PutRow registers a RowQueue handle.
func (r *Repository) PutRow(q *RowQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[q.ID()] = q
}

// PutWindow registers a WindowQueue handle.
func (r *Repository) PutWindow(q *WindowQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[q.ID()] = q
}

// Row looks up a RowQueue by ID.
func (r *Repository) Row(id RowQueueID) (*RowQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.rows[id]
	return q, ok
}

// Window looks up a WindowQueue by ID.
func (r *Repository) Window(id WindowQueueID) (*WindowQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.windows[id]
	return q, ok
}

// RemoveRow drops a RowQueue from the repository — used when a
// reconfiguration removes an edge whose queue has no successor to drain
// into (spec.md §4.6 step 5: "queues that disappear are drained and
// discarded").
func (r *Repository) RemoveRow(id RowQueueID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
}

// RemoveWindow drops a WindowQueue from the repository.
func (r *Repository) RemoveWindow(id WindowQueueID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, id)
}
