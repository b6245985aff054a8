package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/organization"
)

type OrganizationStore struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]organization.Organization
}

func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{orgs: make(map[uuid.UUID]organization.Organization)}
}

func (s *OrganizationStore) Create(_ context.Context, o *organization.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if existing.DeletedAt == nil && existing.LicenseNumber == o.LicenseNumber {
			return organization.ErrDuplicateLicense
		}
	}
	s.orgs[o.ID] = *o
	return nil
}

func (s *OrganizationStore) GetByID(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok || o.DeletedAt != nil {
		return nil, organization.ErrNotFound
	}
	return &o, nil
}

func (s *OrganizationStore) GetByLicense(_ context.Context, license string) (*organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if o.DeletedAt == nil && o.LicenseNumber == license {
			o := o
			return &o, nil
		}
	}
	return nil, organization.ErrNotFound
}

func (s *OrganizationStore) List(_ context.Context, limit, offset int) ([]*organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*organization.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		if o.DeletedAt != nil {
			continue
		}
		o := o
		all = append(all, &o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), nil
}

func (s *OrganizationStore) Update(_ context.Context, o *organization.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orgs[o.ID]
	if !ok || existing.DeletedAt != nil {
		return organization.ErrNotFound
	}
	s.orgs[o.ID] = *o
	return nil
}
