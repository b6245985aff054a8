package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
)

// DeliveryStore implements delivery.Store against PostgreSQL.
type DeliveryStore struct {
	db *pgxpool.Pool
}

func NewDeliveryStore(db *pgxpool.Pool) *DeliveryStore {
	return &DeliveryStore{db: db}
}

const deliveryColumns = `id, beneficiary_id, org_id, aid_type, quantity, unit, status,
	scheduled_for, delivered_at, notes, created_by, created_at, updated_at`

func (r *DeliveryStore) Create(ctx context.Context, d *delivery.Delivery) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	q := `
		INSERT INTO deliveries (id, beneficiary_id, org_id, aid_type, quantity, unit,
			status, scheduled_for, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(ctx, q,
		d.ID, d.BeneficiaryID, d.OrgID, d.AidType, d.Quantity, d.Unit,
		d.Status, d.ScheduledFor, d.Notes, d.CreatedBy, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

func (r *DeliveryStore) GetByID(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	var d delivery.Delivery
	err := r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id).Scan(
		&d.ID, &d.BeneficiaryID, &d.OrgID, &d.AidType, &d.Quantity, &d.Unit, &d.Status,
		&d.ScheduledFor, &d.DeliveredAt, &d.Notes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, delivery.ErrNotFound
		}
		return nil, fmt.Errorf("query delivery: %w", err)
	}
	return &d, nil
}

func (r *DeliveryStore) ListByBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, limit, offset int) ([]*delivery.Delivery, error) {
	q := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE beneficiary_id = $1
		ORDER BY scheduled_for DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, q, beneficiaryID, limit, offset)
}

func (r *DeliveryStore) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*delivery.Delivery, error) {
	q := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE org_id = $1
		ORDER BY scheduled_for DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, q, orgID, limit, offset)
}

func (r *DeliveryStore) Update(ctx context.Context, d *delivery.Delivery) error {
	d.UpdatedAt = time.Now().UTC()
	q := `
		UPDATE deliveries SET aid_type = $2, quantity = $3, unit = $4, status = $5,
			scheduled_for = $6, delivered_at = $7, notes = $8, updated_at = $9
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		d.ID, d.AidType, d.Quantity, d.Unit, d.Status,
		d.ScheduledFor, d.DeliveredAt, d.Notes, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return delivery.ErrNotFound
	}
	return nil
}

func (r *DeliveryStore) list(ctx context.Context, q string, args ...any) ([]*delivery.Delivery, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []*delivery.Delivery
	for rows.Next() {
		var d delivery.Delivery
		if err := rows.Scan(
			&d.ID, &d.BeneficiaryID, &d.OrgID, &d.AidType, &d.Quantity, &d.Unit, &d.Status,
			&d.ScheduledFor, &d.DeliveredAt, &d.Notes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
