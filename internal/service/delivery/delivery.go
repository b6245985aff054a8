package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("delivery not found")
	ErrInvalidTransition = errors.New("invalid delivery status transition")
)

// Delivery statuses. A delivery moves Scheduled -> InTransit -> Delivered,
// or to Cancelled from any non-terminal state.
const (
	StatusScheduled = "SCHEDULED"
	StatusInTransit = "IN_TRANSIT"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
)

// Aid types.
const (
	AidFood    = "food"
	AidCash    = "cash"
	AidMedical = "medical"
	AidShelter = "shelter"
	AidOther   = "other"
)

// Delivery is one scheduled aid handover from an organization to a
// beneficiary.
type Delivery struct {
	ID            uuid.UUID
	BeneficiaryID uuid.UUID
	OrgID         uuid.UUID
	AidType       string
	Quantity      int
	Unit          string
	Status        string
	ScheduledFor  time.Time
	DeliveredAt   *time.Time
	Notes         string
	CreatedBy     uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence boundary for deliveries.
type Store interface {
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]*Delivery, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Delivery, error)
	Update(ctx context.Context, d *Delivery) error
}

// canTransition encodes the status machine.
func canTransition(from, to string) bool {
	switch from {
	case StatusScheduled:
		return to == StatusInTransit || to == StatusDelivered || to == StatusCancelled
	case StatusInTransit:
		return to == StatusDelivered || to == StatusCancelled
	}
	return false
}
