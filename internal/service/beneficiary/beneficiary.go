package beneficiary

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("beneficiary not found")
	ErrDuplicateNationalID = errors.New("national ID already registered")
	ErrInvalidPhone        = errors.New("invalid phone number format")
	ErrInvalidNationalID   = errors.New("national ID must be exactly 9 digits")
	ErrUnknownField        = errors.New("unknown beneficiary field")
	ErrFieldProtected      = errors.New("field requires a verified edit")
)

// Beneficiary statuses.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Canonical field names, as resolved by the protection policy. UI-facing
// names must be mapped to these before any policy lookup.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldPhoneNumber = "phone_number"
	FieldNationalID  = "national_id"
	FieldBankAccount = "bank_account"
	FieldAddress     = "address"
	FieldFamilySize  = "family_size"
	FieldNotes       = "notes"
	FieldStatus      = "status"
)

// Beneficiary is an aid case record. NationalID and BankAccount are stored
// AES-256-GCM encrypted; NationalIDHash is the SHA-256 digest of the raw ID
// for uniqueness and lookups.
type Beneficiary struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Phone          string
	NationalID     *string
	NationalIDHash *string
	BankAccount    *string
	Address        string
	FamilySize     int
	Notes          string
	Status         string
	CreatedBy      uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Store is the persistence boundary for beneficiary records.
type Store interface {
	Create(ctx context.Context, b *Beneficiary) error
	GetByID(ctx context.Context, id uuid.UUID) (*Beneficiary, error)
	GetByNationalIDHash(ctx context.Context, hash string) (*Beneficiary, error)
	List(ctx context.Context, limit, offset int) ([]*Beneficiary, error)
	Update(ctx context.Context, b *Beneficiary) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}
