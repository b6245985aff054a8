package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
)

type DeliveryStore struct {
	mu         sync.RWMutex
	deliveries map[uuid.UUID]delivery.Delivery
}

func NewDeliveryStore() *DeliveryStore {
	return &DeliveryStore{deliveries: make(map[uuid.UUID]delivery.Delivery)}
}

func (s *DeliveryStore) Create(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[d.ID] = *d
	return nil
}

func (s *DeliveryStore) GetByID(_ context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	return &d, nil
}

func (s *DeliveryStore) ListByBeneficiary(_ context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]*delivery.Delivery, error) {
	return s.list(func(d *delivery.Delivery) bool { return d.BeneficiaryID == beneficiaryID }, limit, offset)
}

func (s *DeliveryStore) ListByOrg(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*delivery.Delivery, error) {
	return s.list(func(d *delivery.Delivery) bool { return d.OrgID == orgID }, limit, offset)
}

func (s *DeliveryStore) Update(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		return delivery.ErrNotFound
	}
	s.deliveries[d.ID] = *d
	return nil
}

func (s *DeliveryStore) list(match func(*delivery.Delivery) bool, limit, offset int) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*delivery.Delivery
	for _, d := range s.deliveries {
		d := d
		if match(&d) {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.After(out[j].ScheduledFor) })
	return page(out, limit, offset), nil
}
