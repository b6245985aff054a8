package protection

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Decision is the gate's verdict on one edit attempt.
type Decision int

const (
	// Allow: apply the value immediately.
	Allow Decision = iota
	// RequireOTP: hold the value as a pending change until a passcode
	// round succeeds.
	RequireOTP
	// RequireApproval: queue the value for a separate approver; nothing is
	// applied synchronously.
	RequireApproval
	// Deny: the actor lacks clearance; no mutation happens.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RequireOTP:
		return "require_otp"
	case RequireApproval:
		return "require_approval"
	case Deny:
		return "deny"
	}
	return "unknown"
}

// PendingFieldChange is a proposed edit held in memory while a gating step
// clears. It lives for at most one edit round and is never persisted (the
// approval path gets its own queued record instead).
type PendingFieldChange struct {
	Field          string    `json:"field"`
	ProposedValue  string    `json:"proposed_value"`
	TargetRecordID uuid.UUID `json:"target_record_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Applier writes a cleared field change through to the working record.
// The beneficiary service implements it.
type Applier interface {
	ApplyFieldChange(ctx context.Context, change PendingFieldChange) error
}

// Actor is the acting user as the gate sees them.
type Actor struct {
	UserID   uuid.UUID
	UserType string
	Role     string
	Phone    string
}

// Gate decides, per field and per actor, whether an edit proceeds
// immediately, needs an OTP step-up, must be queued for approval, or is
// denied outright. One Gate instance belongs to one open edit session; it
// owns that session's single pending-change slot.
type Gate struct {
	policy  *Policy
	applier Applier
	now     func() time.Time

	pending *PendingFieldChange
}

func NewGate(policy *Policy, applier Applier) *Gate {
	return &Gate{policy: policy, applier: applier, now: time.Now}
}

// Evaluate maps the policy resolution onto a Decision.
// The approval and OTP paths only ever gate edits to existing records;
// new-record creation is never gated (there is nothing to protect yet).
// On Deny the returned error is a *DeniedError naming the required level.
func (g *Gate) Evaluate(field string, actor Actor, editingExisting bool) (Decision, error) {
	res := g.policy.Resolve(field, actor.Role)

	if !res.CanEdit {
		return Deny, &DeniedError{Field: field, Role: actor.Role, RequiredLevel: res.Level}
	}
	if !editingExisting {
		return Allow, nil
	}
	if res.RequiresApproval {
		return RequireApproval, nil
	}
	if res.RequiresOTP {
		return RequireOTP, nil
	}
	return Allow, nil
}

// Hold parks value as the session's pending change. The slot is single-
// flight: a second protected edit cannot start while one is pending.
func (g *Gate) Hold(field, value string, recordID uuid.UUID) (*PendingFieldChange, error) {
	if g.pending != nil {
		return nil, ErrEditInFlight
	}
	g.pending = &PendingFieldChange{
		Field:          field,
		ProposedValue:  value,
		TargetRecordID: recordID,
		CreatedAt:      g.now(),
	}
	return g.pending, nil
}

// Pending returns the held change, if any.
func (g *Gate) Pending() *PendingFieldChange {
	return g.pending
}

// Commit applies the held change through the Applier and clears the slot.
// With no pending change it is a no-op and returns nil, so a double
// invocation (UI re-render race) is harmless. If applying fails the change
// stays held so the caller can retry without re-entering the value.
func (g *Gate) Commit(ctx context.Context) error {
	if g.pending == nil {
		return nil
	}
	if err := g.applier.ApplyFieldChange(ctx, *g.pending); err != nil {
		return err
	}
	g.pending = nil
	return nil
}

// Discard drops the held change without applying it. Used on modal close and
// cancellation. Discarding an empty slot is fine.
func (g *Gate) Discard() {
	g.pending = nil
}
