package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/pkg/phone"
)

type CreateRequest struct {
	Name          string
	LicenseNumber string
	ContactPhone  string
	ContactName   string
	Address       string
}

type UpdateRequest struct {
	Name         *string
	ContactPhone *string
	ContactName  *string
	Address      *string
	Status       *string
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Organization, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	normPhone, err := phone.Normalize(req.ContactPhone)
	if err != nil {
		return nil, ErrInvalidPhone
	}

	if req.LicenseNumber != "" {
		if _, err := s.store.GetByLicense(ctx, req.LicenseNumber); err == nil {
			return nil, ErrDuplicateLicense
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check license: %w", err)
		}
	}

	o := &Organization{
		ID:            uuid.Must(uuid.NewV7()),
		Name:          req.Name,
		LicenseNumber: req.LicenseNumber,
		ContactPhone:  normPhone,
		ContactName:   req.ContactName,
		Address:       req.Address,
		Status:        StatusActive,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Organization, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.ContactPhone != nil {
		norm, err := phone.Normalize(*req.ContactPhone)
		if err != nil {
			return nil, ErrInvalidPhone
		}
		o.ContactPhone = norm
	}
	if req.ContactName != nil {
		o.ContactName = *req.ContactName
	}
	if req.Address != nil {
		o.Address = *req.Address
	}
	if req.Status != nil {
		switch *req.Status {
		case StatusActive, StatusSuspended:
			o.Status = *req.Status
		default:
			return nil, fmt.Errorf("unknown status %q", *req.Status)
		}
	}

	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
