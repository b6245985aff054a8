package protection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue keeps queued changes in process memory. Used in tests and when
// running without a database.
type MemoryQueue struct {
	mu      sync.RWMutex
	changes map[uuid.UUID]QueuedChange
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{changes: make(map[uuid.UUID]QueuedChange)}
}

func (q *MemoryQueue) Push(_ context.Context, change *QueuedChange) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.changes[change.ID] = *change
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id uuid.UUID) (*QueuedChange, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	change, ok := q.changes[id]
	if !ok {
		return nil, ErrChangeNotFound
	}
	out := change
	return &out, nil
}

func (q *MemoryQueue) ListPending(_ context.Context) ([]*QueuedChange, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []*QueuedChange
	for _, change := range q.changes {
		if change.Status == StatusPending {
			c := change
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (q *MemoryQueue) Decide(_ context.Context, id uuid.UUID, status string, decidedBy uuid.UUID, decidedAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	change, ok := q.changes[id]
	if !ok {
		return ErrChangeNotFound
	}
	if change.Status != StatusPending {
		return ErrAlreadyDecided
	}
	change.Status = status
	change.DecidedBy = &decidedBy
	change.DecidedAt = &decidedAt
	q.changes[id] = change
	return nil
}
