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

	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
)

// BeneficiaryStore implements beneficiary.Store against PostgreSQL.
type BeneficiaryStore struct {
	db *pgxpool.Pool
}

func NewBeneficiaryStore(db *pgxpool.Pool) *BeneficiaryStore {
	return &BeneficiaryStore{db: db}
}

const beneficiaryColumns = `id, first_name, last_name, phone, national_id, national_id_hash,
	bank_account, address, family_size, notes, status, created_by,
	created_at, updated_at, deleted_at`

func (r *BeneficiaryStore) Create(ctx context.Context, b *beneficiary.Beneficiary) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	q := `
		INSERT INTO beneficiaries (id, first_name, last_name, phone, national_id,
			national_id_hash, bank_account, address, family_size, notes, status,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.Exec(ctx, q,
		b.ID, b.FirstName, b.LastName, b.Phone, b.NationalID,
		b.NationalIDHash, b.BankAccount, b.Address, b.FamilySize, b.Notes, b.Status,
		b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return beneficiary.ErrDuplicateNationalID
		}
		return fmt.Errorf("create beneficiary: %w", err)
	}
	return nil
}

func (r *BeneficiaryStore) GetByID(ctx context.Context, id uuid.UUID) (*beneficiary.Beneficiary, error) {
	return r.scanOne(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *BeneficiaryStore) GetByNationalIDHash(ctx context.Context, hash string) (*beneficiary.Beneficiary, error) {
	return r.scanOne(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE national_id_hash = $1 AND deleted_at IS NULL`, hash)
}

func (r *BeneficiaryStore) List(ctx context.Context, limit, offset int) ([]*beneficiary.Beneficiary, error) {
	q := `SELECT ` + beneficiaryColumns + ` FROM beneficiaries WHERE deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []*beneficiary.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BeneficiaryStore) Update(ctx context.Context, b *beneficiary.Beneficiary) error {
	b.UpdatedAt = time.Now().UTC()
	q := `
		UPDATE beneficiaries SET first_name = $2, last_name = $3, phone = $4,
			national_id = $5, national_id_hash = $6, bank_account = $7,
			address = $8, family_size = $9, notes = $10, status = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, q,
		b.ID, b.FirstName, b.LastName, b.Phone,
		b.NationalID, b.NationalIDHash, b.BankAccount,
		b.Address, b.FamilySize, b.Notes, b.Status, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return beneficiary.ErrDuplicateNationalID
		}
		return fmt.Errorf("update beneficiary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return beneficiary.ErrNotFound
	}
	return nil
}

func (r *BeneficiaryStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE beneficiaries SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at.UTC())
	if err != nil {
		return fmt.Errorf("delete beneficiary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return beneficiary.ErrNotFound
	}
	return nil
}

func (r *BeneficiaryStore) scanOne(ctx context.Context, q string, args ...any) (*beneficiary.Beneficiary, error) {
	b, err := scanBeneficiary(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, beneficiary.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBeneficiary(row pgx.Row) (*beneficiary.Beneficiary, error) {
	var b beneficiary.Beneficiary
	err := row.Scan(
		&b.ID, &b.FirstName, &b.LastName, &b.Phone, &b.NationalID, &b.NationalIDHash,
		&b.BankAccount, &b.Address, &b.FamilySize, &b.Notes, &b.Status, &b.CreatedBy,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
