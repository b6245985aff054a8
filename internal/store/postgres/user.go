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

	"github.com/ataa-platform/ataa_backend/internal/service/user"
)

// UserStore implements user.Store against PostgreSQL.
type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, phone, password_hash, first_name, last_name, role, user_type,
	national_id, national_id_hash, phone_verified, status,
	failed_login_attempts, locked_until, last_login_at, last_failed_login_at,
	created_at, updated_at, deleted_at`

func (r *UserStore) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	q := `
		INSERT INTO users (id, phone, password_hash, first_name, last_name, role, user_type,
			national_id, national_id_hash, phone_verified, status,
			failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Phone, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.UserType,
		u.NationalID, u.NationalIDHash, u.PhoneVerified, u.Status,
		u.FailedLoginAttempts, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_phone_key" {
				return user.ErrDuplicatePhone
			}
			return user.ErrDuplicateNationalID
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *UserStore) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1 AND deleted_at IS NULL`, phone)
}

func (r *UserStore) GetByNationalIDHash(ctx context.Context, hash string) (*user.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE national_id_hash = $1 AND deleted_at IS NULL`, hash)
}

func (r *UserStore) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	q := `
		UPDATE users SET phone = $2, password_hash = $3, first_name = $4, last_name = $5,
			role = $6, user_type = $7, national_id = $8, national_id_hash = $9,
			phone_verified = $10, status = $11, failed_login_attempts = $12,
			locked_until = $13, last_login_at = $14, last_failed_login_at = $15,
			updated_at = $16
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, q,
		u.ID, u.Phone, u.PasswordHash, u.FirstName, u.LastName,
		u.Role, u.UserType, u.NationalID, u.NationalIDHash,
		u.PhoneVerified, u.Status, u.FailedLoginAttempts,
		u.LockedUntil, u.LastLoginAt, u.LastFailedLoginAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserStore) scanOne(ctx context.Context, q string, args ...any) (*user.User, error) {
	var u user.User
	err := r.db.QueryRow(ctx, q, args...).Scan(
		&u.ID, &u.Phone, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.UserType,
		&u.NationalID, &u.NationalIDHash, &u.PhoneVerified, &u.Status,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.LastLoginAt, &u.LastFailedLoginAt,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
