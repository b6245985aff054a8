package protection

import (
	"errors"
	"fmt"
)

var (
	// ErrEditInFlight means a pending change already occupies this session's
	// slot; one field-edit round at a time per form instance.
	ErrEditInFlight = errors.New("another protected edit is already in progress")

	// ErrSessionClosed means the edit session was closed or completed and
	// cannot accept further operations.
	ErrSessionClosed = errors.New("edit session is closed")

	// ErrNoPendingChange is returned by operations that need a held change
	// (verify, resend) when none exists. Commit is deliberately exempt: it
	// is a safe no-op without a pending change.
	ErrNoPendingChange = errors.New("no pending field change")

	// ErrResendNotReady means the resend cool-down has not elapsed.
	ErrResendNotReady = errors.New("resend is not available yet")
)

// DeniedError reports a policy denial together with the clearance the actor
// would need, so the caller can render a message naming the required level.
type DeniedError struct {
	Field         string
	Role          string
	RequiredLevel int
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("role %q may not edit %q: requires clearance for level %d fields", e.Role, e.Field, e.RequiredLevel)
}
