package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
)

type BeneficiaryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]beneficiary.Beneficiary
}

func NewBeneficiaryStore() *BeneficiaryStore {
	return &BeneficiaryStore{records: make(map[uuid.UUID]beneficiary.Beneficiary)}
}

func (s *BeneficiaryStore) Create(_ context.Context, b *beneficiary.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.NationalIDHash != nil {
		for _, existing := range s.records {
			if existing.DeletedAt == nil && existing.NationalIDHash != nil &&
				*existing.NationalIDHash == *b.NationalIDHash {
				return beneficiary.ErrDuplicateNationalID
			}
		}
	}
	s.records[b.ID] = *b
	return nil
}

func (s *BeneficiaryStore) GetByID(_ context.Context, id uuid.UUID) (*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.records[id]
	if !ok || b.DeletedAt != nil {
		return nil, beneficiary.ErrNotFound
	}
	return &b, nil
}

func (s *BeneficiaryStore) GetByNationalIDHash(_ context.Context, hash string) (*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.records {
		if b.DeletedAt == nil && b.NationalIDHash != nil && *b.NationalIDHash == hash {
			b := b
			return &b, nil
		}
	}
	return nil, beneficiary.ErrNotFound
}

func (s *BeneficiaryStore) List(_ context.Context, limit, offset int) ([]*beneficiary.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*beneficiary.Beneficiary, 0, len(s.records))
	for _, b := range s.records {
		if b.DeletedAt != nil {
			continue
		}
		b := b
		all = append(all, &b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (s *BeneficiaryStore) Update(_ context.Context, b *beneficiary.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[b.ID]
	if !ok || existing.DeletedAt != nil {
		return beneficiary.ErrNotFound
	}
	s.records[b.ID] = *b
	return nil
}

func (s *BeneficiaryStore) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.records[id]
	if !ok || b.DeletedAt != nil {
		return beneficiary.ErrNotFound
	}
	b.DeletedAt = &at
	s.records[id] = b
	return nil
}

// page applies limit/offset to an already-sorted slice.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
