package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id           text PRIMARY KEY,
    filename     text NOT NULL,
    size_bytes   bigint NOT NULL,
    route        text NOT NULL,
    chunks       int NOT NULL DEFAULT 1,
    text         text NOT NULL,
    language     text NOT NULL DEFAULT '',
    elapsed_ms   bigint NOT NULL DEFAULT 0,
    created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transcripts_filename ON transcripts (filename);
`

// Migrate creates the schema. Every statement is idempotent, so running at
// each startup is safe.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.log.Debug().Msg("schema up to date")
	return nil
}
