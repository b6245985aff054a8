package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicatePhone      = errors.New("phone number already registered")
	ErrDuplicateNationalID = errors.New("national ID already registered")
)

// Account statuses.
const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// User types carried in tokens and challenges.
const (
	TypeStaff = "staff"
	TypeOrg   = "org"
)

// User is a staff or organization account. NationalID is stored AES-256-GCM
// encrypted; NationalIDHash is its SHA-256 digest for uniqueness lookups.
type User struct {
	ID             uuid.UUID
	Phone          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Role           string
	UserType       string
	NationalID     *string
	NationalIDHash *string
	PhoneVerified  bool
	Status         string

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	LastFailedLoginAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Store is the persistence boundary for accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetByNationalIDHash(ctx context.Context, hash string) (*User, error)
	Update(ctx context.Context, u *User) error
}
