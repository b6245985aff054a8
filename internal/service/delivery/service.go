package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/organization"
)

type CreateRequest struct {
	BeneficiaryID uuid.UUID
	OrgID         uuid.UUID
	AidType       string
	Quantity      int
	Unit          string
	ScheduledFor  time.Time
	Notes         string
	CreatedBy     uuid.UUID
}

var knownAidTypes = map[string]struct{}{
	AidFood: {}, AidCash: {}, AidMedical: {}, AidShelter: {}, AidOther: {},
}

// Service schedules deliveries and walks them through the status machine.
// Referential checks go through the owning services, not raw stores.
type Service struct {
	store Store
	bens  *beneficiary.Service
	orgs  *organization.Service
	now   func() time.Time
}

func NewService(store Store, bens *beneficiary.Service, orgs *organization.Service) *Service {
	return &Service{store: store, bens: bens, orgs: orgs, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Delivery, error) {
	if _, ok := knownAidTypes[req.AidType]; !ok {
		return nil, fmt.Errorf("unknown aid type %q", req.AidType)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if _, err := s.bens.Get(ctx, req.BeneficiaryID); err != nil {
		return nil, err
	}
	if _, err := s.orgs.Get(ctx, req.OrgID); err != nil {
		return nil, err
	}

	d := &Delivery{
		ID:            uuid.Must(uuid.NewV7()),
		BeneficiaryID: req.BeneficiaryID,
		OrgID:         req.OrgID,
		AidType:       req.AidType,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		Status:        StatusScheduled,
		ScheduledFor:  req.ScheduledFor,
		Notes:         req.Notes,
		CreatedBy:     req.CreatedBy,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]*Delivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListByBeneficiary(ctx, beneficiaryID, limit, offset)
}

func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Delivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListByOrg(ctx, orgID, limit, offset)
}

// Transition moves a delivery to a new status. Delivered stamps DeliveredAt.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to string) (*Delivery, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(d.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	d.Status = to
	if to == StatusDelivered {
		now := s.now()
		d.DeliveredAt = &now
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
