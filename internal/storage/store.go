package storage

import (
	"context"
	"errors"
	"time"

	"remix/internal/delta"
	"remix/internal/segment"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a fork was saved by someone else since it was read.
	ErrConflict = errors.New("fork version conflict")
)

// Document is an upstream (original) document.
type Document struct {
	ID       string
	OwnerID  string
	Title    string
	Segments []segment.Segment
	// Revision starts at 1 and increments every time the segment tree changes.
	Revision  int64
	UpdatedAt time.Time
}

// Fork is a user's copy of a document, stored as deltas against the original.
type Fork struct {
	ID           string
	OwnerID      string
	OriginalID   string
	Deltas       []delta.Delta
	BaseRevision int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store combines document and fork persistence.
type Store interface {
	DocumentStore
	ForkStore
	Close() error
}

// DocumentStore persists upstream documents.
type DocumentStore interface {
	// SaveDocument upserts a document and returns its resulting revision.
	SaveDocument(ctx context.Context, doc *Document) (int64, error)

	// GetDocument retrieves a document by its ID.
	GetDocument(ctx context.Context, id string) (*Document, error)
}

// ForkStore persists forks. Every lookup is scoped to the owning user.
type ForkStore interface {
	CreateFork(ctx context.Context, fork *Fork) error

	GetFork(ctx context.Context, ownerID, id string) (*Fork, error)

	ListForks(ctx context.Context, ownerID string) ([]*Fork, error)

	// SaveForkDeltas replaces the fork's delta list if its stored version still
	// equals expectedVersion and returns the new version.
	SaveForkDeltas(ctx context.Context, ownerID, id string, deltas []delta.Delta, baseRevision, expectedVersion int64) (int64, error)
}
