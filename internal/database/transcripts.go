package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TranscriptRow is one stored transcription result.
type TranscriptRow struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Route     string    `json:"route"`
	Chunks    int       `json:"chunks"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertTranscript stores a finished transcription.
func (db *DB) InsertTranscript(ctx context.Context, row *TranscriptRow) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO transcripts (id, filename, size_bytes, route, chunks, text, language, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		row.ID, row.Filename, row.SizeBytes, row.Route, row.Chunks, row.Text, row.Language, row.ElapsedMS)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// GetTranscript returns the transcript with the given id, or nil when it
// does not exist.
func (db *DB) GetTranscript(ctx context.Context, id string) (*TranscriptRow, error) {
	row := &TranscriptRow{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, filename, size_bytes, route, chunks, text, language, elapsed_ms, created_at
		FROM transcripts WHERE id = $1`, id).
		Scan(&row.ID, &row.Filename, &row.SizeBytes, &row.Route, &row.Chunks,
			&row.Text, &row.Language, &row.ElapsedMS, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return row, nil
}

// ListTranscripts returns recent transcripts, newest first.
func (db *DB) ListTranscripts(ctx context.Context, limit, offset int) ([]TranscriptRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, filename, size_bytes, route, chunks, text, language, elapsed_ms, created_at
		FROM transcripts ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	out := []TranscriptRow{}
	for rows.Next() {
		var r TranscriptRow
		if err := rows.Scan(&r.ID, &r.Filename, &r.SizeBytes, &r.Route, &r.Chunks,
			&r.Text, &r.Language, &r.ElapsedMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
