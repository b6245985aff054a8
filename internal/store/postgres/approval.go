package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ataa-platform/ataa_backend/internal/service/protection"
)

// ApprovalQueue implements protection.Queue against PostgreSQL, making
// approval-path changes durable across restarts.
type ApprovalQueue struct {
	db *pgxpool.Pool
}

func NewApprovalQueue(db *pgxpool.Pool) *ApprovalQueue {
	return &ApprovalQueue{db: db}
}

const queuedColumns = `id, target_record_id, field, proposed_value, requested_by, status,
	created_at, decided_at, decided_by`

func (r *ApprovalQueue) Push(ctx context.Context, change *protection.QueuedChange) error {
	q := `
		INSERT INTO queued_changes (id, target_record_id, field, proposed_value,
			requested_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, q,
		change.ID, change.TargetRecordID, change.Field, change.ProposedValue,
		change.RequestedBy, change.Status, change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("push queued change: %w", err)
	}
	return nil
}

func (r *ApprovalQueue) Get(ctx context.Context, id uuid.UUID) (*protection.QueuedChange, error) {
	var c protection.QueuedChange
	err := r.db.QueryRow(ctx, `SELECT `+queuedColumns+` FROM queued_changes WHERE id = $1`, id).Scan(
		&c.ID, &c.TargetRecordID, &c.Field, &c.ProposedValue, &c.RequestedBy, &c.Status,
		&c.CreatedAt, &c.DecidedAt, &c.DecidedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, protection.ErrChangeNotFound
		}
		return nil, fmt.Errorf("query queued change: %w", err)
	}
	return &c, nil
}

func (r *ApprovalQueue) ListPending(ctx context.Context) ([]*protection.QueuedChange, error) {
	q := `SELECT ` + queuedColumns + ` FROM queued_changes WHERE status = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, q, protection.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list queued changes: %w", err)
	}
	defer rows.Close()

	var out []*protection.QueuedChange
	for rows.Next() {
		var c protection.QueuedChange
		if err := rows.Scan(
			&c.ID, &c.TargetRecordID, &c.Field, &c.ProposedValue, &c.RequestedBy, &c.Status,
			&c.CreatedAt, &c.DecidedAt, &c.DecidedBy,
		); err != nil {
			return nil, fmt.Errorf("scan queued change: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Decide flips pending to a terminal status. The WHERE clause makes the flip
// exactly-once under concurrent approvers.
func (r *ApprovalQueue) Decide(ctx context.Context, id uuid.UUID, status string, decidedBy uuid.UUID, decidedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE queued_changes SET status = $2, decided_by = $3, decided_at = $4
		 WHERE id = $1 AND status = $5`,
		id, status, decidedBy, decidedAt, protection.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("decide queued change: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already decided; disambiguate.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return protection.ErrAlreadyDecided
	}
	return nil
}
