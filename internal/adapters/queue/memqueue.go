// Package queue provides the in-memory hand-off between the collector side
// and the ingest side of the agent. Entries carry the WAL id assigned when the
// entity became durable, so the ingest loop can commit the log after the sink
// acknowledges a batch.
package queue

import (
	"sync"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// MemQueue is a bounded FIFO backed by a slice with a moving head index.
// Dequeues advance the head instead of shifting the backing array; the slice
// is compacted once the consumed prefix dominates it.
type MemQueue struct {
	mu    sync.Mutex
	items []ports.QueuedEntity
	head  int
	limit int
}

// NewMemQueue returns a queue that rejects enqueues beyond capacity.
func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		items: make([]ports.QueuedEntity, 0, capacity),
		limit: capacity,
	}
}

// Enqueue appends an entity with its WAL id. It reports false when the queue
// is at capacity; the caller decides whether to block, drop, or reject.
func (q *MemQueue) Enqueue(id ports.WALEntryID, e *domain.Entity) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items)-q.head >= q.limit {
		return false
	}
	q.items = append(q.items, ports.QueuedEntity{ID: id, Entity: e})
	return true
}

// DequeueBatch removes up to max entries in arrival order. A max of zero or
// less, or one larger than the queue, drains everything. It returns nil when
// the queue is empty.
func (q *MemQueue) DequeueBatch(max int) []ports.QueuedEntity {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items) - q.head
	if n == 0 {
		return nil
	}
	if max <= 0 || max > n {
		max = n
	}

	out := make([]ports.QueuedEntity, max)
	copy(out, q.items[q.head:q.head+max])
	for i := q.head; i < q.head+max; i++ {
		q.items[i].Entity = nil
	}
	q.head += max

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > q.limit {
		remaining := copy(q.items, q.items[q.head:])
		q.items = q.items[:remaining]
		q.head = 0
	}

	return out
}

// Len reports the number of entries waiting to be dequeued.
func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

var _ ports.EntityQueue = (*MemQueue)(nil)
