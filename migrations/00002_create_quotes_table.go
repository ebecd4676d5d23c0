package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateQuotesTable, downCreateQuotesTable)
}

func upCreateQuotesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE quotes (
	  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	  user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	  client_name TEXT NOT NULL,
	  client_email TEXT,
	  project_description TEXT,
	  estimated_hours INTEGER,
	  price BIGINT,
	  include_vat BOOLEAN NOT NULL DEFAULT true,
	  template_style TEXT NOT NULL DEFAULT 'professional',
	  generated_content TEXT,
	  status TEXT NOT NULL DEFAULT 'draft'
	    CHECK (status IN ('draft', 'pending', 'sent', 'viewed', 'approved', 'rejected')),
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  sent_at TIMESTAMP WITH TIME ZONE,
	  pdf_url TEXT
	);

	CREATE INDEX idx_quotes_user_created ON quotes (user_id, created_at);
	CREATE INDEX idx_quotes_user_updated ON quotes (user_id, updated_at DESC);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateQuotesTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS quotes;`)
	return err
}
