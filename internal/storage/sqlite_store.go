package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"portfolio/internal/model"

	_ "modernc.org/sqlite"
)

// recordName is the fixed key of the single counter row.
const recordName = "site"

// SQLiteStore keeps the count in one row and increments it with a single
// UPDATE ... RETURNING, so separate processes sharing the database do not
// lose updates.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS visitor_count (
		name TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create visitor_count table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ensureRow(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO visitor_count (name, count) VALUES (?, 0)`, recordName)
	if err != nil {
		return fmt.Errorf("initialize record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (model.VisitorCount, error) {
	if err := s.ensureRow(ctx); err != nil {
		return model.VisitorCount{}, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM visitor_count WHERE name = ?`, recordName).Scan(&count)
	if err != nil {
		return model.VisitorCount{}, fmt.Errorf("select count: %w", err)
	}
	return toRecord(count)
}

func (s *SQLiteStore) Save(ctx context.Context, rec model.VisitorCount) error {
	if rec.Count > math.MaxInt64 {
		return fmt.Errorf("count %d does not fit an sqlite integer", rec.Count)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitor_count (name, count, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET count = excluded.count, updated_at = excluded.updated_at`,
		recordName, int64(rec.Count))
	if err != nil {
		return fmt.Errorf("save count: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Increment(ctx context.Context) (model.VisitorCount, error) {
	if err := s.ensureRow(ctx); err != nil {
		return model.VisitorCount{}, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE visitor_count SET count = count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE name = ? RETURNING count`, recordName).Scan(&count)
	if err != nil {
		return model.VisitorCount{}, fmt.Errorf("increment count: %w", err)
	}
	return toRecord(count)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toRecord(count int64) (model.VisitorCount, error) {
	if count < 0 {
		return model.VisitorCount{}, fmt.Errorf("%w: negative count %d", ErrMalformedRecord, count)
	}
	return model.VisitorCount{Count: uint64(count)}, nil
}
