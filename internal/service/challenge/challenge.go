package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/pkg/phone"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

// Purpose identifies what a challenge steps up.
type Purpose string

const (
	PurposePhoneVerification Purpose = "phone_verification"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeFieldEdit         Purpose = "field_edit"
)

// KnownPurposes is the closed set of purposes the store is keyed by.
var KnownPurposes = []Purpose{
	PurposePhoneVerification,
	PurposePasswordReset,
	PurposeFieldEdit,
}

func ValidPurpose(p Purpose) bool {
	for _, k := range KnownPurposes {
		if p == k {
			return true
		}
	}
	return false
}

// Challenge is one issued one-time-passcode record. The raw code is never
// stored; only its SHA-256 hash is.
type Challenge struct {
	ID          uuid.UUID  `json:"id"`
	Phone       string     `json:"phone"`
	CodeHash    string     `json:"code_hash"`
	Purpose     Purpose    `json:"purpose"`
	UserID      uuid.UUID  `json:"user_id"`
	UserType    string     `json:"user_type"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Expired reports whether the absolute time window has elapsed.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Exhausted reports whether the attempt limit has been reached.
// An exhausted challenge stays unverifiable even while time-valid.
func (c *Challenge) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// Active reports whether the challenge can still be verified:
// not yet verified, not expired, attempts remaining. Verified, Expired and
// Exhausted are all terminal; nothing transitions out of them.
func (c *Challenge) Active(now time.Time) bool {
	return !c.Verified && !c.Expired(now) && !c.Exhausted()
}

// Sink delivers a raw code out of band (SMS/WhatsApp). Delivery success is
// outside this service's contract.
type Sink interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// PhoneVerifier flags the record owning a phone number as verified after a
// successful phone_verification challenge.
type PhoneVerifier interface {
	MarkPhoneVerified(ctx context.Context, phoneNumber string) error
}

// Service issues, verifies and invalidates OTP challenges against a Store.
// Expiry and attempt decisions are always re-read from the store at
// verification time; nothing is trusted from client-held state.
type Service struct {
	store    Store
	sink     Sink
	verifier PhoneVerifier
	cfg      otp.Config
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock substitutes the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPhoneVerifier wires the collaborator notified on successful
// phone_verification challenges.
func WithPhoneVerifier(v PhoneVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

func New(store Store, sink Sink, cfg otp.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("challenge service: %w", err)
	}
	s := &Service{
		store: store,
		sink:  sink,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BindPhoneVerifier attaches the verifier after construction. The account
// service both depends on this service and acts as its verifier, so one of
// the two references has to be bound late.
func (s *Service) BindPhoneVerifier(v PhoneVerifier) { s.verifier = v }

// CodeLength returns the configured code length.
func (s *Service) CodeLength() int { return s.cfg.CodeLength }

// TTL returns the configured challenge lifetime.
func (s *Service) TTL() time.Duration { return time.Duration(s.cfg.TTLSeconds) * time.Second }

// IssueResult is returned from Issue. Code is the raw passcode, returned for
// out-of-band delivery and the development display channel only; it is never
// logged and never persisted in cleartext.
type IssueResult struct {
	ChallengeID uuid.UUID
	Code        string
	ExpiresAt   time.Time
}

// Issue creates a new challenge for (phoneNumber, purpose), superseding any
// prior active challenge for the pair: the store keys challenges by the pair,
// so the old code stops being acceptable the moment the new record lands,
// regardless of its remaining time window.
func (s *Service) Issue(ctx context.Context, phoneNumber string, userID uuid.UUID, userType string, purpose Purpose) (*IssueResult, error) {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	if !ValidPurpose(purpose) {
		return nil, ErrUnknownPurpose
	}

	code, err := otp.Generate(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	ch := &Challenge{
		ID:          uuid.Must(uuid.NewV7()),
		Phone:       normalized,
		CodeHash:    otp.Hash(code),
		Purpose:     purpose,
		UserID:      userID,
		UserType:    userType,
		MaxAttempts: s.cfg.MaxAttempts,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.TTL()),
	}

	if err := s.store.Put(ctx, ch); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	if err := s.sink.SendCode(ctx, normalized, code); err != nil {
		// The challenge stays issued; the caller's resend affordance
		// supersedes it on retry.
		slog.Warn("challenge delivery failed", "purpose", purpose, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return &IssueResult{ChallengeID: ch.ID, Code: code, ExpiresAt: ch.ExpiresAt}, nil
}

// Verify checks code against the active challenge for (phoneNumber, purpose).
//
// Return contract:
//   - (true, nil): code matched; the challenge is now terminally verified.
//   - (false, nil): plain mismatch. The caller decides whether to charge an
//     attempt via IncrementAttempts, so the UI can show attempt-specific
//     feedback before committing the increment.
//   - (false, ErrInvalidOrExpired): no active challenge (never issued, time
//     window elapsed, superseded, or already verified).
//   - (false, ErrAttemptsExhausted): attempt limit reached; only a re-issue
//     can recover.
func (s *Service) Verify(ctx context.Context, phoneNumber, code string, purpose Purpose) (bool, error) {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return false, ErrInvalidPhone
	}

	ch, err := s.store.Get(ctx, normalized, purpose)
	if err == ErrNoChallenge {
		return false, ErrInvalidOrExpired
	}
	if err != nil {
		return false, fmt.Errorf("load challenge: %w", err)
	}

	now := s.now()
	if ch.Verified || ch.Expired(now) {
		return false, ErrInvalidOrExpired
	}
	if ch.Exhausted() {
		return false, ErrAttemptsExhausted
	}

	if otp.Verify(ch.CodeHash, code) != nil {
		return false, nil
	}

	verifiedAt := now
	ch.Verified = true
	ch.VerifiedAt = &verifiedAt
	if err := s.store.Update(ctx, ch); err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}

	if purpose == PurposePhoneVerification && s.verifier != nil {
		if err := s.verifier.MarkPhoneVerified(ctx, normalized); err != nil {
			slog.Warn("mark phone verified failed", "error", err)
		}
	}

	return true, nil
}

// IncrementAttempts charges one failed attempt against the challenge matched
// by (phoneNumber, code) among the phone's active challenges. The typed code
// rarely matches a stored hash (it was wrong), so when no hash matches and
// exactly one challenge is active for the phone, that one is charged.
// Once Attempts reaches MaxAttempts the challenge is permanently
// unverifiable even inside its time window.
func (s *Service) IncrementAttempts(ctx context.Context, phoneNumber, code string) error {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return ErrInvalidPhone
	}

	now := s.now()
	var active []*Challenge
	for _, p := range KnownPurposes {
		ch, err := s.store.Get(ctx, normalized, p)
		if err == ErrNoChallenge {
			continue
		}
		if err != nil {
			return fmt.Errorf("load challenge: %w", err)
		}
		if ch.Active(now) {
			active = append(active, ch)
		}
	}
	if len(active) == 0 {
		return nil
	}

	target := active[0]
	for _, ch := range active {
		if otp.Verify(ch.CodeHash, code) == nil {
			target = ch
			break
		}
		if ch.IssuedAt.After(target.IssuedAt) {
			target = ch
		}
	}

	target.Attempts++
	if err := s.store.Update(ctx, target); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// Invalidate drops the active challenge for the pair, if any.
func (s *Service) Invalidate(ctx context.Context, phoneNumber string, purpose Purpose) error {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return ErrInvalidPhone
	}
	return s.store.Delete(ctx, normalized, purpose)
}
