package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUsersTable, downCreateUsersTable)
}

func upCreateUsersTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE users (
	  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	  email TEXT NOT NULL,
	  password_hash TEXT NOT NULL,
	  first_name TEXT,
	  last_name TEXT,
	  business_name TEXT,
	  phone TEXT,
	  address TEXT,
	  website TEXT,
	  logo_url TEXT,
	  quotes_created_count INTEGER NOT NULL DEFAULT 0,
	  subscription_tier TEXT NOT NULL DEFAULT 'free',
	  subscription_end_date TIMESTAMP WITH TIME ZONE,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE UNIQUE INDEX users_email_lower_idx ON users (lower(email));
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateUsersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS users;`)
	return err
}
