package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/admstats/internal/domain/model"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS dumps (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    captured_at INTEGER NOT NULL,
    records INTEGER NOT NULL,
    applicants INTEGER NOT NULL,
    body BLOB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dumps_captured_at ON dumps(captured_at);
`

// Dump describes one archived snapshot.
type Dump struct {
	Seq        int64     `json:"seq"`
	CapturedAt time.Time `json:"capturedAt"`
	Records    int       `json:"records"`
	Applicants int       `json:"applicants"`
}

// Archive keeps every fetched snapshot under an increasing sequence number.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the archive at dsn and applies the schema.
// Use ":memory:" for a throwaway archive.
func OpenArchive(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run archive migrations: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Append stores snap and returns its sequence number.
func (a *Archive) Append(ctx context.Context, snap *model.Snapshot) (int64, error) {
	var body bytes.Buffer
	if err := model.Encode(&body, snap); err != nil {
		return 0, fmt.Errorf("failed to encode dump: %w", err)
	}

	query := `
		INSERT INTO dumps (captured_at, records, applicants, body)
		VALUES (?, ?, ?, ?)
	`
	res, err := a.db.ExecContext(ctx, query,
		snap.CapturedAt.Unix(),
		snap.Len(),
		snap.Applicants(),
		body.Bytes(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append dump: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read dump sequence: %w", err)
	}
	return seq, nil
}

// Get loads the snapshot stored under seq.
func (a *Archive) Get(ctx context.Context, seq int64) (*model.Snapshot, error) {
	var body []byte
	err := a.db.QueryRowContext(ctx, `SELECT body FROM dumps WHERE seq = ?`, seq).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDumpNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dump %d: %w", seq, err)
	}
	return decodeDump(seq, body)
}

// Latest loads the most recently appended snapshot, or ErrNoSnapshot.
func (a *Archive) Latest(ctx context.Context) (*model.Snapshot, error) {
	dumps, err := a.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(dumps) == 0 {
		return nil, ErrNoSnapshot
	}
	return a.Get(ctx, dumps[0].Seq)
}

// List returns up to limit dumps, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]Dump, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT seq, captured_at, records, applicants
		FROM dumps
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dumps: %w", err)
	}
	defer rows.Close()

	var out []Dump
	for rows.Next() {
		var (
			d        Dump
			captured int64
		)
		if err := rows.Scan(&d.Seq, &captured, &d.Records, &d.Applicants); err != nil {
			return nil, fmt.Errorf("failed to scan dump: %w", err)
		}
		d.CapturedAt = time.Unix(captured, 0).UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list dumps: %w", err)
	}
	return out, nil
}

// Count returns the number of archived dumps.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dumps`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dumps: %w", err)
	}
	return n, nil
}

func decodeDump(seq int64, body []byte) (*model.Snapshot, error) {
	snap, err := model.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode dump %d: %w", seq, err)
	}
	return snap, nil
}
