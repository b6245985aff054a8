package protection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
)

// sessionGrace is how long a spent session lingers before its slot can be
// reclaimed by a new edit.
const sessionGrace = 5 * time.Minute

// EditOutcome is what one edit attempt produced. Exactly one of the optional
// branches is populated, matching the Decision.
type EditOutcome struct {
	Decision Decision `json:"decision"`
	// Reason is the human-readable denial message, naming the required
	// clearance level. Only set on Deny.
	Reason string `json:"reason,omitempty"`
	// SessionID identifies the OTP round to continue. Only set on RequireOTP.
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	// Challenge carries the issue result for the session's first send.
	// Nil when delivery failed; the session still exists and can resend.
	Challenge *challenge.IssueResult `json:"-"`
	// DeliveryFailed is true when the first send did not reach the sink.
	DeliveryFailed bool `json:"delivery_failed,omitempty"`
	// Queued is the durable approval-path record. Only set on RequireApproval.
	Queued *QueuedChange `json:"queued,omitempty"`
}

// Service is the caller-facing surface of the edit-protection subsystem:
// policy resolution, edit gating, the OTP session registry, and the approval
// queue.
type Service struct {
	policy     *Policy
	challenges *challenge.Service
	queue      Queue
	applier    Applier
	now        func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	byRecord map[string]uuid.UUID // actor+record -> open session
}

type ServiceOption func(*Service)

// WithServiceClock substitutes the wall clock, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(policy *Policy, challenges *challenge.Service, queue Queue, applier Applier, opts ...ServiceOption) *Service {
	s := &Service{
		policy:     policy,
		challenges: challenges,
		queue:      queue,
		applier:    applier,
		now:        time.Now,
		sessions:   make(map[uuid.UUID]*Session),
		byRecord:   make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve exposes the policy lookup for form rendering (e.g. showing a lock
// icon before the user even tries).
func (s *Service) Resolve(field, role string) Resolution {
	return s.policy.Resolve(field, role)
}

func slotKey(userID, recordID uuid.UUID) string {
	return userID.String() + "/" + recordID.String()
}

// EvaluateEdit gates one field edit. Allow applies the value synchronously;
// RequireApproval queues it durably; RequireOTP opens a session holding the
// value as a pending change and issues the first challenge; Deny reports the
// required clearance and mutates nothing. Denial is an outcome, not an error:
// the error return is reserved for infrastructure failures.
func (s *Service) EvaluateEdit(ctx context.Context, actor Actor, recordID uuid.UUID, field, value string, editingExisting bool) (*EditOutcome, error) {
	gate := NewGate(s.policy, s.applier)

	decision, err := gate.Evaluate(field, actor, editingExisting)
	if err != nil {
		var denied *DeniedError
		if errors.As(err, &denied) {
			return &EditOutcome{Decision: Deny, Reason: denied.Error()}, nil
		}
		return nil, err
	}

	switch decision {
	case Allow:
		change := PendingFieldChange{
			Field:          field,
			ProposedValue:  value,
			TargetRecordID: recordID,
			CreatedAt:      s.now(),
		}
		if err := s.applier.ApplyFieldChange(ctx, change); err != nil {
			return nil, fmt.Errorf("apply field change: %w", err)
		}
		return &EditOutcome{Decision: Allow}, nil

	case RequireApproval:
		queued := &QueuedChange{
			ID:             uuid.Must(uuid.NewV7()),
			TargetRecordID: recordID,
			Field:          field,
			ProposedValue:  value,
			RequestedBy:    actor.UserID,
			Status:         StatusPending,
			CreatedAt:      s.now(),
		}
		if err := s.queue.Push(ctx, queued); err != nil {
			return nil, fmt.Errorf("queue change: %w", err)
		}
		return &EditOutcome{Decision: RequireApproval, Queued: queued}, nil

	case RequireOTP:
		return s.openSession(ctx, gate, actor, recordID, field, value)
	}

	return nil, fmt.Errorf("unhandled decision %v", decision)
}

func (s *Service) openSession(ctx context.Context, gate *Gate, actor Actor, recordID uuid.UUID, field, value string) (*EditOutcome, error) {
	s.mu.Lock()
	key := slotKey(actor.UserID, recordID)
	if existingID, ok := s.byRecord[key]; ok {
		existing := s.sessions[existingID]
		if existing != nil && s.slotBusy(existing) {
			s.mu.Unlock()
			return nil, ErrEditInFlight
		}
		delete(s.sessions, existingID)
		delete(s.byRecord, key)
	}

	if _, err := gate.Hold(field, value, recordID); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	sess := &Session{
		ID:         uuid.Must(uuid.NewV7()),
		state:      StateIdle,
		actor:      actor,
		recordID:   recordID,
		gate:       gate,
		challenges: s.challenges,
		now:        s.now,
	}
	s.sessions[sess.ID] = sess
	s.byRecord[key] = sess.ID
	s.mu.Unlock()

	outcome := &EditOutcome{Decision: RequireOTP, SessionID: &sess.ID}

	res, err := sess.open(ctx)
	if err != nil {
		if errors.Is(err, challenge.ErrDeliveryFailed) {
			// The session survives with its pending change; the
			// caller retries through the session's own resend.
			slog.Warn("protected edit: first send failed", "session_id", sess.ID, "field", field)
			outcome.DeliveryFailed = true
			return outcome, nil
		}
		sess.Close()
		return nil, err
	}

	outcome.Challenge = res
	return outcome, nil
}

// slotBusy reports whether sess still blocks its (actor, record) slot.
// Caller holds s.mu.
func (s *Service) slotBusy(sess *Session) bool {
	switch sess.State() {
	case StateVerified, StateClosed:
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.issued && s.now().After(sess.expiresAt.Add(sessionGrace)) {
		return false
	}
	return true
}

// Session returns the open session by ID.
func (s *Service) Session(id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionClosed
	}
	return sess, nil
}

// CloseSession discards the session's pending change and frees its slot.
// Unknown ids report ErrSessionClosed.
func (s *Service) CloseSession(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, sess.ID)
		delete(s.byRecord, slotKey(sess.actor.UserID, sess.recordID))
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionClosed
	}
	sess.Close()
	return nil
}

// ListPendingApprovals lists queued approval-path changes.
func (s *Service) ListPendingApprovals(ctx context.Context) ([]*QueuedChange, error) {
	return s.queue.ListPending(ctx)
}

// Approve applies a queued change and marks it decided.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approver Actor) (*QueuedChange, error) {
	qc, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if qc.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}

	change := PendingFieldChange{
		Field:          qc.Field,
		ProposedValue:  qc.ProposedValue,
		TargetRecordID: qc.TargetRecordID,
		CreatedAt:      qc.CreatedAt,
	}
	if err := s.applier.ApplyFieldChange(ctx, change); err != nil {
		return nil, fmt.Errorf("apply approved change: %w", err)
	}

	decidedAt := s.now()
	if err := s.queue.Decide(ctx, id, StatusApproved, approver.UserID, decidedAt); err != nil {
		return nil, err
	}
	qc.Status = StatusApproved
	qc.DecidedAt = &decidedAt
	qc.DecidedBy = &approver.UserID
	return qc, nil
}

// Reject marks a queued change rejected without applying it.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, approver Actor) (*QueuedChange, error) {
	qc, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if qc.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}

	decidedAt := s.now()
	if err := s.queue.Decide(ctx, id, StatusRejected, approver.UserID, decidedAt); err != nil {
		return nil, err
	}
	qc.Status = StatusRejected
	qc.DecidedAt = &decidedAt
	qc.DecidedBy = &approver.UserID
	return qc, nil
}
