package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ataa-platform/ataa_backend/internal/service/organization"
)

// OrganizationStore implements organization.Store against PostgreSQL.
type OrganizationStore struct {
	db *pgxpool.Pool
}

func NewOrganizationStore(db *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{db: db}
}

const orgColumns = `id, name, license_number, contact_phone, contact_name, address, status,
	created_at, updated_at, deleted_at`

func (r *OrganizationStore) Create(ctx context.Context, o *organization.Organization) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	q := `
		INSERT INTO organizations (id, name, license_number, contact_phone, contact_name,
			address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, q,
		o.ID, o.Name, o.LicenseNumber, o.ContactPhone, o.ContactName,
		o.Address, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return organization.ErrDuplicateLicense
		}
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (r *OrganizationStore) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	return r.scanOne(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *OrganizationStore) GetByLicense(ctx context.Context, license string) (*organization.Organization, error) {
	return r.scanOne(ctx, `SELECT `+orgColumns+` FROM organizations WHERE license_number = $1 AND deleted_at IS NULL`, license)
}

func (r *OrganizationStore) List(ctx context.Context, limit, offset int) ([]*organization.Organization, error) {
	q := `SELECT ` + orgColumns + ` FROM organizations WHERE deleted_at IS NULL
		ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*organization.Organization
	for rows.Next() {
		var o organization.Organization
		if err := rows.Scan(
			&o.ID, &o.Name, &o.LicenseNumber, &o.ContactPhone, &o.ContactName,
			&o.Address, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *OrganizationStore) Update(ctx context.Context, o *organization.Organization) error {
	o.UpdatedAt = time.Now().UTC()
	q := `
		UPDATE organizations SET name = $2, license_number = $3, contact_phone = $4,
			contact_name = $5, address = $6, status = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, q,
		o.ID, o.Name, o.LicenseNumber, o.ContactPhone,
		o.ContactName, o.Address, o.Status, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return organization.ErrNotFound
	}
	return nil
}

func (r *OrganizationStore) scanOne(ctx context.Context, q string, args ...any) (*organization.Organization, error) {
	var o organization.Organization
	err := r.db.QueryRow(ctx, q, args...).Scan(
		&o.ID, &o.Name, &o.LicenseNumber, &o.ContactPhone, &o.ContactName,
		&o.Address, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, organization.ErrNotFound
		}
		return nil, fmt.Errorf("query organization: %w", err)
	}
	return &o, nil
}
