package protection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrChangeNotFound = errors.New("queued change not found")
	ErrAlreadyDecided = errors.New("queued change already decided")
)

// Approval statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// QueuedChange is a field edit deferred to the approval workflow. Unlike an
// in-memory PendingFieldChange it is durable: it outlives the edit session
// and waits for an approver.
type QueuedChange struct {
	ID             uuid.UUID  `json:"id"`
	TargetRecordID uuid.UUID  `json:"target_record_id"`
	Field          string     `json:"field"`
	ProposedValue  string     `json:"proposed_value"`
	RequestedBy    uuid.UUID  `json:"requested_by"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	DecidedBy      *uuid.UUID `json:"decided_by,omitempty"`
}

// Queue persists approval-path changes.
type Queue interface {
	Push(ctx context.Context, change *QueuedChange) error
	Get(ctx context.Context, id uuid.UUID) (*QueuedChange, error)
	ListPending(ctx context.Context) ([]*QueuedChange, error)
	// Decide flips status from pending to approved/rejected exactly once.
	Decide(ctx context.Context, id uuid.UUID, status string, decidedBy uuid.UUID, decidedAt time.Time) error
}
