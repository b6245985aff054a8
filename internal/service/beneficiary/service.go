package beneficiary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/pkg/crypto"
	"github.com/ataa-platform/ataa_backend/pkg/phone"
)

var reNationalID = regexp.MustCompile(`^\d{9}$`)

type CreateRequest struct {
	FirstName   string
	LastName    string
	Phone       string
	NationalID  string // raw digits, optional
	BankAccount string // optional
	Address     string
	FamilySize  int
	Notes       string
}

type UpdateRequest struct {
	// Open fields only; protected fields go through EditField.
	Fields map[string]string
}

// View is the caller-facing projection. Sensitive values are masked; raw
// values never leave the service except through the lookup endpoints that
// decrypt deliberately.
type View struct {
	ID               uuid.UUID `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Phone            string    `json:"phone"`
	NationalIDMasked string    `json:"national_id_masked,omitempty"`
	BankAccountSet   bool      `json:"bank_account_set"`
	Address          string    `json:"address"`
	FamilySize       int       `json:"family_size"`
	Notes            string    `json:"notes"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Service owns beneficiary records: CRUD for open fields and the protected
// edit flow for gated ones. It is the protection gate's Applier.
type Service struct {
	store      Store
	protection *protection.Service
	encKey     []byte
}

func NewService(store Store, cfg *config.Config) (*Service, error) {
	encKey, err := crypto.KeyFromHex(cfg.Authentication.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("beneficiary service: invalid encryption key: %w", err)
	}
	return &Service{store: store, encKey: encKey}, nil
}

// BindProtection wires the protection service after construction. The two
// services reference each other (the gate applies through this service), so
// one side binds late.
func (s *Service) BindProtection(p *protection.Service) {
	s.protection = p
}

func (s *Service) Create(ctx context.Context, actor protection.Actor, req CreateRequest) (*View, error) {
	normPhone, err := phone.Normalize(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	req.NationalID = strings.TrimSpace(req.NationalID)
	if req.NationalID != "" && !reNationalID.MatchString(req.NationalID) {
		return nil, ErrInvalidNationalID
	}

	b := &Beneficiary{
		ID:         uuid.Must(uuid.NewV7()),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      normPhone,
		Address:    req.Address,
		FamilySize: req.FamilySize,
		Notes:      req.Notes,
		Status:     StatusActive,
		CreatedBy:  actor.UserID,
	}

	if req.NationalID != "" {
		h := crypto.Hash(req.NationalID)
		if _, err := s.store.GetByNationalIDHash(ctx, h); err == nil {
			return nil, ErrDuplicateNationalID
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check national_id: %w", err)
		}
		enc, err := crypto.Encrypt(s.encKey, req.NationalID)
		if err != nil {
			return nil, fmt.Errorf("encrypt national_id: %w", err)
		}
		b.NationalID = &enc
		b.NationalIDHash = &h
	}
	if req.BankAccount != "" {
		enc, err := crypto.Encrypt(s.encKey, req.BankAccount)
		if err != nil {
			return nil, fmt.Errorf("encrypt bank_account: %w", err)
		}
		b.BankAccount = &enc
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	return s.view(b), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(b), nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*View, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	bs, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*View, 0, len(bs))
	for _, b := range bs {
		out = append(out, s.view(b))
	}
	return out, nil
}

// FindByNationalID looks a record up by raw national ID via the lookup hash.
func (s *Service) FindByNationalID(ctx context.Context, rawID string) (*View, error) {
	rawID = strings.TrimSpace(rawID)
	if !reNationalID.MatchString(rawID) {
		return nil, ErrInvalidNationalID
	}
	b, err := s.store.GetByNationalIDHash(ctx, crypto.Hash(rawID))
	if err != nil {
		return nil, err
	}
	return s.view(b), nil
}

// Update applies open fields directly. Any field the policy gates for the
// actor is rejected with ErrFieldProtected so the caller switches to the
// field-edit flow.
func (s *Service) Update(ctx context.Context, actor protection.Actor, id uuid.UUID, req UpdateRequest) (*View, error) {
	for field := range req.Fields {
		res := s.protection.Resolve(field, actor.Role)
		if !res.CanEdit {
			return nil, &protection.DeniedError{Field: field, Role: actor.Role, RequiredLevel: res.Level}
		}
		if res.RequiresOTP || res.RequiresApproval {
			return nil, fmt.Errorf("%w: %s", ErrFieldProtected, field)
		}
	}

	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for field, value := range req.Fields {
		if err := s.setField(b, field, value); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, b); err != nil {
		return nil, err
	}
	return s.view(b), nil
}

// EditField routes one field edit through the protection gate.
func (s *Service) EditField(ctx context.Context, actor protection.Actor, id uuid.UUID, field, value string) (*protection.EditOutcome, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.validateField(field, value); err != nil {
		return nil, err
	}
	return s.protection.EvaluateEdit(ctx, actor, id, field, value, true)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.SoftDelete(ctx, id, time.Now())
}

// ApplyFieldChange implements protection.Applier: a cleared change is written
// through to the record, encrypting where the field demands it.
func (s *Service) ApplyFieldChange(ctx context.Context, change protection.PendingFieldChange) error {
	b, err := s.store.GetByID(ctx, change.TargetRecordID)
	if err != nil {
		return err
	}
	if err := s.setField(b, change.Field, change.ProposedValue); err != nil {
		return err
	}
	return s.store.Update(ctx, b)
}

func (s *Service) validateField(field, value string) error {
	switch field {
	case FieldPhoneNumber:
		if _, err := phone.Normalize(value); err != nil {
			return ErrInvalidPhone
		}
	case FieldNationalID:
		if !reNationalID.MatchString(strings.TrimSpace(value)) {
			return ErrInvalidNationalID
		}
	case FieldFamilySize:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%w: family_size must be a number", ErrUnknownField)
		}
	case FieldFirstName, FieldLastName, FieldBankAccount, FieldAddress, FieldNotes, FieldStatus:
	default:
		// Unknown fields are still editable (the policy default is open);
		// they just have nowhere to land on this record.
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (s *Service) setField(b *Beneficiary, field, value string) error {
	switch field {
	case FieldFirstName:
		b.FirstName = value
	case FieldLastName:
		b.LastName = value
	case FieldPhoneNumber:
		norm, err := phone.Normalize(value)
		if err != nil {
			return ErrInvalidPhone
		}
		b.Phone = norm
	case FieldNationalID:
		raw := strings.TrimSpace(value)
		if !reNationalID.MatchString(raw) {
			return ErrInvalidNationalID
		}
		enc, err := crypto.Encrypt(s.encKey, raw)
		if err != nil {
			return fmt.Errorf("encrypt national_id: %w", err)
		}
		h := crypto.Hash(raw)
		b.NationalID = &enc
		b.NationalIDHash = &h
	case FieldBankAccount:
		enc, err := crypto.Encrypt(s.encKey, value)
		if err != nil {
			return fmt.Errorf("encrypt bank_account: %w", err)
		}
		b.BankAccount = &enc
	case FieldAddress:
		b.Address = value
	case FieldFamilySize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: family_size must be a non-negative number", ErrUnknownField)
		}
		b.FamilySize = n
	case FieldNotes:
		b.Notes = value
	case FieldStatus:
		b.Status = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (s *Service) view(b *Beneficiary) *View {
	v := &View{
		ID:             b.ID,
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Phone:          b.Phone,
		BankAccountSet: b.BankAccount != nil,
		Address:        b.Address,
		FamilySize:     b.FamilySize,
		Notes:          b.Notes,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.NationalID != nil {
		if raw, err := crypto.Decrypt(s.encKey, *b.NationalID); err == nil {
			v.NationalIDMasked = maskID(raw)
		}
	}
	return v
}

// maskID keeps the last three digits: 900123456 -> ******456.
func maskID(raw string) string {
	if len(raw) <= 3 {
		return raw
	}
	return strings.Repeat("*", len(raw)-3) + raw[len(raw)-3:]
}
