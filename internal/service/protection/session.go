package protection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

// Session states.
type State int

const (
	StateIdle State = iota
	StateSent
	StateVerified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateVerified:
		return "verified"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one open OTP round for one protected field edit. It owns the
// pending change (through its Gate) from the moment the edit is evaluated
// until commit, cancellation, or expiry.
//
// The countdown it reports is advisory presentation state; every Submit is
// re-validated against the persisted challenge record, so a stale session can
// never accept an old code after a resend.
type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	state      State
	actor      Actor
	recordID   uuid.UUID
	gate       *Gate
	challenges *challenge.Service
	now        func() time.Time

	issued       bool // issue-once guard for the opening send
	deliveryDown bool // last send failed; resend allowed immediately
	verified     bool // code accepted; commit still owed after an apply failure
	expiresAt    time.Time
}

// SubmitResult is the single-shot outcome of one verification attempt.
// No callback chain exists: the caller reads the value and reacts.
type SubmitResult struct {
	Verified bool `json:"verified"`
	// Committed is true once the pending change has been applied.
	Committed bool `json:"committed"`
	// Exhausted signals the UI to stop inviting guesses and force a resend.
	Exhausted bool   `json:"exhausted"`
	Message   string `json:"message,omitempty"`
}

// send issues (or re-issues) the challenge. Caller holds s.mu.
func (s *Session) send(ctx context.Context) (*challenge.IssueResult, error) {
	res, err := s.challenges.Issue(ctx, s.actor.Phone, s.actor.UserID, s.actor.UserType, challenge.PurposeFieldEdit)
	if err != nil {
		s.deliveryDown = true
		return nil, err
	}
	s.deliveryDown = false
	s.issued = true
	s.state = StateSent
	s.expiresAt = res.ExpiresAt
	return res, nil
}

// open issues the first challenge once per session. A repeated open call
// (client re-render) is a no-op.
func (s *Session) open(ctx context.Context) (*challenge.IssueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issued {
		return nil, nil
	}
	return s.send(ctx)
}

// SecondsRemaining reports the advisory countdown.
func (s *Session) SecondsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSent {
		return 0
	}
	left := int(s.expiresAt.Sub(s.now()).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// CanResend reports whether the resend affordance is live: the countdown ran
// out, or the last delivery attempt failed.
func (s *Session) CanResend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canResendLocked()
}

func (s *Session) canResendLocked() bool {
	if s.state != StateSent {
		return s.deliveryDown
	}
	return s.deliveryDown || !s.now().Before(s.expiresAt)
}

// Resend clears error state and issues a fresh challenge, superseding the
// previous one through the store.
func (s *Session) Resend(ctx context.Context) (*challenge.IssueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateVerified, StateClosed:
		return nil, ErrSessionClosed
	}
	if !s.canResendLocked() {
		return nil, ErrResendNotReady
	}
	return s.send(ctx)
}

// Submit runs one verification attempt against the authoritative store and,
// on success, commits the pending change. A failed verification leaves the
// pending change untouched so the user can retry without re-entering the
// value.
func (s *Session) Submit(ctx context.Context, input string) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateVerified, StateClosed:
		return nil, ErrSessionClosed
	case StateIdle:
		return nil, ErrNoPendingChange
	}

	// The challenge was already accepted but the apply failed; the code is
	// spent, so retry the commit directly instead of re-verifying.
	if s.verified {
		return s.commitLocked(ctx)
	}

	code := otp.Normalize(input, s.challenges.CodeLength())
	if !otp.IsComplete(code, s.challenges.CodeLength()) {
		// Not a chargeable attempt: the form should not have allowed
		// submission, so don't burn one of the three tries on it.
		return &SubmitResult{Message: "enter the complete code"}, nil
	}

	ok, err := s.challenges.Verify(ctx, s.actor.Phone, code, challenge.PurposeFieldEdit)
	switch {
	case err == nil && ok:
		s.verified = true
		return s.commitLocked(ctx)

	case err == challenge.ErrAttemptsExhausted:
		return &SubmitResult{Exhausted: true, Message: challenge.ErrAttemptsExhausted.Error()}, nil

	case err == nil || err == challenge.ErrInvalidOrExpired:
		// Wrong, stale, or superseded code: charge the attempt after the
		// verdict so the feedback reflects the attempt being charged.
		if incErr := s.challenges.IncrementAttempts(ctx, s.actor.Phone, code); incErr != nil {
			return nil, incErr
		}
		return &SubmitResult{Message: challenge.ErrInvalidOrExpired.Error()}, nil

	default:
		return nil, err
	}
}

// commitLocked applies the pending change for an accepted code. On failure the
// session and its pending change survive, so the next Submit retries the
// commit. Caller holds s.mu.
func (s *Session) commitLocked(ctx context.Context) (*SubmitResult, error) {
	if err := s.gate.Commit(ctx); err != nil {
		return nil, err
	}
	s.state = StateVerified
	return &SubmitResult{Verified: true, Committed: true}, nil
}

// Close discards the pending change and ends the session. The outstanding
// server-side challenge is left to expire or be superseded; no explicit
// invalidation is needed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.gate.Discard()
	s.state = StateClosed
}

// state snapshot for handlers.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
