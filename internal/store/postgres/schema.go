package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so a restart never
// fails on an existing table.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	phone TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	user_type TEXT NOT NULL,
	national_id TEXT,
	national_id_hash TEXT,
	phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	failed_login_attempts INT NOT NULL DEFAULT 0,
	locked_until TIMESTAMPTZ,
	last_login_at TIMESTAMPTZ,
	last_failed_login_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS users_phone_key ON users (phone) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_national_id_hash_key ON users (national_id_hash) WHERE deleted_at IS NULL AND national_id_hash IS NOT NULL;

CREATE TABLE IF NOT EXISTS beneficiaries (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL,
	national_id TEXT,
	national_id_hash TEXT,
	bank_account TEXT,
	address TEXT NOT NULL DEFAULT '',
	family_size INT NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS beneficiaries_national_id_hash_key ON beneficiaries (national_id_hash) WHERE deleted_at IS NULL AND national_id_hash IS NOT NULL;

CREATE TABLE IF NOT EXISTS organizations (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	license_number TEXT NOT NULL DEFAULT '',
	contact_phone TEXT NOT NULL,
	contact_name TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS organizations_license_key ON organizations (license_number) WHERE deleted_at IS NULL AND license_number <> '';

CREATE TABLE IF NOT EXISTS deliveries (
	id UUID PRIMARY KEY,
	beneficiary_id UUID NOT NULL REFERENCES beneficiaries (id),
	org_id UUID NOT NULL REFERENCES organizations (id),
	aid_type TEXT NOT NULL,
	quantity INT NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'SCHEDULED',
	scheduled_for TIMESTAMPTZ NOT NULL,
	delivered_at TIMESTAMPTZ,
	notes TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS deliveries_beneficiary_idx ON deliveries (beneficiary_id);
CREATE INDEX IF NOT EXISTS deliveries_org_idx ON deliveries (org_id);

CREATE TABLE IF NOT EXISTS queued_changes (
	id UUID PRIMARY KEY,
	target_record_id UUID NOT NULL,
	field TEXT NOT NULL,
	proposed_value TEXT NOT NULL,
	requested_by UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL,
	decided_at TIMESTAMPTZ,
	decided_by UUID
);
CREATE INDEX IF NOT EXISTS queued_changes_status_idx ON queued_changes (status);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
