package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"remix/internal/delta"
	"remix/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument() *Document {
	return &Document{
		ID:      "doc-1",
		OwnerID: "alice",
		Title:   "Guide",
		Segments: []segment.Segment{
			segment.NewHeading("a", "Intro", segment.NewLeaf("b", "Hello")),
		},
	}
}

func TestSQLiteStore_SaveDocument_RevisionTracksContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument()
	rev, err := store.SaveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	// Same content, new title: revision stays.
	doc.Title = "Guide v2"
	rev, err = store.SaveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	doc.Segments = []segment.Segment{
		segment.NewHeading("a", "Intro", segment.NewLeaf("b", "Hello, again")),
	}
	rev, err = store.SaveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	loaded, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Guide v2", loaded.Title)
	assert.Equal(t, "alice", loaded.OwnerID)
	assert.Equal(t, int64(2), loaded.Revision)
	assert.True(t, segment.Equal(doc.Segments, loaded.Segments))
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestSQLiteStore_SaveDocument_RejectsInvalidTree(t *testing.T) {
	store := newTestStore(t)

	doc := testDocument()
	doc.Segments = append(doc.Segments, segment.NewLeaf("b", "dup"))
	_, err := store.SaveDocument(context.Background(), doc)
	assert.ErrorIs(t, err, segment.ErrDuplicateID)
}

func TestSQLiteStore_GetDocument_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Forks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveDocument(ctx, testDocument())
	require.NoError(t, err)

	fork := &Fork{ID: "fork-1", OwnerID: "bob", OriginalID: "doc-1", BaseRevision: 1}
	require.NoError(t, store.CreateFork(ctx, fork))
	assert.Equal(t, int64(1), fork.Version)

	loaded, err := store.GetFork(ctx, "bob", "fork-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Deltas)
	assert.Equal(t, "doc-1", loaded.OriginalID)
	assert.Equal(t, int64(1), loaded.BaseRevision)

	// Forks are invisible to other users.
	_, err = store.GetFork(ctx, "mallory", "fork-1")
	assert.ErrorIs(t, err, ErrNotFound)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deltas := []delta.Delta{
		delta.Modify{SegmentID: "b", NewText: segment.String("Hello world"), Timestamp: ts},
		delta.Add{AfterID: segment.String("a"), Segment: segment.NewLeaf("n", "mine"), Timestamp: ts.Add(1)},
	}
	version, err := store.SaveForkDeltas(ctx, "bob", "fork-1", deltas, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	loaded, err = store.GetFork(ctx, "bob", "fork-1")
	require.NoError(t, err)
	require.Len(t, loaded.Deltas, 2)
	assert.Equal(t, delta.OpModify, loaded.Deltas[0].Op())
	assert.Equal(t, delta.OpAdd, loaded.Deltas[1].Op())
	assert.True(t, ts.Add(1).Equal(loaded.Deltas[1].At()))
	assert.Equal(t, int64(2), loaded.Version)

	forks, err := store.ListForks(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forks, 1)
	assert.Equal(t, "fork-1", forks[0].ID)

	none, err := store.ListForks(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_CreateFork_UnknownOriginal(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateFork(context.Background(), &Fork{ID: "f", OwnerID: "bob", OriginalID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SaveForkDeltas_Conflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveDocument(ctx, testDocument())
	require.NoError(t, err)
	require.NoError(t, store.CreateFork(ctx, &Fork{ID: "fork-1", OwnerID: "bob", OriginalID: "doc-1", BaseRevision: 1}))

	_, err = store.SaveForkDeltas(ctx, "bob", "fork-1", nil, 1, 1)
	require.NoError(t, err)

	// A second writer still holding version 1 loses.
	_, err = store.SaveForkDeltas(ctx, "bob", "fork-1", nil, 1, 1)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.SaveForkDeltas(ctx, "bob", "missing", nil, 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
