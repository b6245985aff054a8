package organization

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("organization not found")
	ErrDuplicateLicense = errors.New("license number already registered")
	ErrInvalidPhone     = errors.New("invalid phone number format")
)

// Organization statuses.
const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// Organization is an aid-distributing body (charity, UN agency, local NGO).
type Organization struct {
	ID            uuid.UUID
	Name          string
	LicenseNumber string
	ContactPhone  string
	ContactName   string
	Address       string
	Status        string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Store is the persistence boundary for organizations.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByLicense(ctx context.Context, license string) (*Organization, error)
	List(ctx context.Context, limit, offset int) ([]*Organization, error)
	Update(ctx context.Context, o *Organization) error
}
