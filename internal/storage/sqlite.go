package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"remix/internal/delta"
	"remix/internal/segment"

	_ "github.com/mattn/go-sqlite3"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT,
			segments JSON NOT NULL,
			revision INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS forks (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			original_id TEXT NOT NULL,
			deltas JSON NOT NULL,
			base_revision INTEGER NOT NULL,
			version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forks_owner ON forks(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_forks_original ON forks(original_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- DocumentStore Implementation ---

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document) (int64, error) {
	if doc == nil || doc.ID == "" {
		return 0, errors.New("document id is required")
	}
	if err := segment.Validate(doc.Segments); err != nil {
		return 0, fmt.Errorf("invalid segment tree for document %s: %w", doc.ID, err)
	}
	segments, err := segment.MarshalTree(doc.Segments)
	if err != nil {
		return 0, fmt.Errorf("failed to encode segments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var existing []byte
	var revision int64
	err = tx.QueryRowContext(ctx, "SELECT segments, revision FROM documents WHERE id = ?", doc.ID).Scan(&existing, &revision)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		revision = 1
	case err != nil:
		return 0, fmt.Errorf("failed to load document %s: %w", doc.ID, err)
	case !bytes.Equal(existing, segments):
		revision++
	}

	now := s.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, title, segments, revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id=excluded.owner_id,
			title=excluded.title,
			segments=excluded.segments,
			revision=excluded.revision,
			updated_at=excluded.updated_at
	`, doc.ID, doc.OwnerID, doc.Title, segments, revision, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	doc.Revision = revision
	doc.UpdatedAt = now
	return revision, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, owner_id, title, segments, revision, updated_at FROM documents WHERE id = ?", id)

	var doc Document
	var segments []byte
	var updatedAt string
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &segments, &doc.Revision, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	tree, err := segment.UnmarshalTree(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to decode segments of document %s: %w", id, err)
	}
	doc.Segments = tree
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// --- ForkStore Implementation ---

func (s *SQLiteStore) CreateFork(ctx context.Context, fork *Fork) error {
	if fork == nil || fork.ID == "" {
		return errors.New("fork id is required")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", fork.OriginalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("original document %s: %w", fork.OriginalID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	deltas, err := delta.Marshal(fork.Deltas)
	if err != nil {
		return fmt.Errorf("failed to encode deltas: %w", err)
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO forks (id, owner_id, original_id, deltas, base_revision, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`, fork.ID, fork.OwnerID, fork.OriginalID, deltas, fork.BaseRevision, formatTime(now), formatTime(now)); err != nil {
		return fmt.Errorf("failed to create fork %s: %w", fork.ID, err)
	}

	fork.Version = 1
	fork.CreatedAt = now
	fork.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetFork(ctx context.Context, ownerID, id string) (*Fork, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, owner_id, original_id, deltas, base_revision, version, created_at, updated_at FROM forks WHERE id = ? AND owner_id = ?", id, ownerID)

	fork, err := scanFork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fork %s: %w", id, ErrNotFound)
	}
	return fork, err
}

func (s *SQLiteStore) ListForks(ctx context.Context, ownerID string) ([]*Fork, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, owner_id, original_id, deltas, base_revision, version, created_at, updated_at FROM forks WHERE owner_id = ? ORDER BY created_at, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forks: %w", err)
	}
	defer rows.Close()

	var forks []*Fork
	for rows.Next() {
		fork, err := scanFork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fork: %w", err)
		}
		forks = append(forks, fork)
	}
	return forks, rows.Err()
}

func (s *SQLiteStore) SaveForkDeltas(ctx context.Context, ownerID, id string, deltas []delta.Delta, baseRevision, expectedVersion int64) (int64, error) {
	encoded, err := delta.Marshal(deltas)
	if err != nil {
		return 0, fmt.Errorf("failed to encode deltas: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE forks SET deltas = ?, base_revision = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`, encoded, baseRevision, formatTime(s.now()), id, ownerID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to save fork %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Either the fork is gone (or not ours) or someone saved first.
		if _, err := s.GetFork(ctx, ownerID, id); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("fork %s at version %d: %w", id, expectedVersion, ErrConflict)
	}
	return expectedVersion + 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFork(row scanner) (*Fork, error) {
	var f Fork
	var deltas []byte
	var createdAt, updatedAt string
	if err := row.Scan(&f.ID, &f.OwnerID, &f.OriginalID, &deltas, &f.BaseRevision, &f.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	decoded, err := delta.Unmarshal(deltas)
	if err != nil {
		return nil, fmt.Errorf("failed to decode deltas of fork %s: %w", f.ID, err)
	}
	f.Deltas = decoded
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}
