package challenge

import "context"

// Store persists challenge records. At most one record exists per
// (phone, purpose) pair: Put replaces whatever was there, which is how the
// single-active-challenge invariant is enforced structurally rather than by
// most-recent-by-timestamp query semantics.
type Store interface {
	// Put stores ch as the one challenge for (ch.Phone, ch.Purpose),
	// superseding any previous record for the pair.
	Put(ctx context.Context, ch *Challenge) error

	// Get returns the stored challenge for the pair, or ErrNoChallenge.
	// The returned record may already be in a terminal state; callers
	// decide what terminal means via Challenge.Active.
	Get(ctx context.Context, phone string, purpose Purpose) (*Challenge, error)

	// Update rewrites the stored record (attempt counts, verified flag).
	// The record's remaining TTL is preserved.
	Update(ctx context.Context, ch *Challenge) error

	// Delete removes the record for the pair. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, phone string, purpose Purpose) error
}
