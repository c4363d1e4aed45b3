package queue

import (
	"sort"
	"sync"
)

// MemoryQueue implements delivery.Queue with a mutex-guarded map. Its lock is
// independent of the lead store's locking: the scheduler inserts while a
// transport pops concurrently.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string]string
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string]string)}
}

func (q *MemoryQueue) Enqueue(leadID, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[leadID] = text
}

func (q *MemoryQueue) Pop(leadID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	text, ok := q.pending[leadID]
	if ok {
		delete(q.pending, leadID)
	}
	return text, ok
}

func (q *MemoryQueue) Contains(leadID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[leadID]
	return ok
}

func (q *MemoryQueue) LeadIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
