package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// saveTestDocument creates a document to satisfy foreign key constraints.
func saveTestDocument(t *testing.T, store *Store, docID string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	err := store.SaveDocument(context.Background(), &domain.Document{
		ID:        docID,
		Title:     "Test Document " + docID,
		URI:       "file:///test/" + docID + ".txt",
		Content:   "test content",
		Metadata:  map[string]string{"source": "test"},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func testRecord(docID string, index int, vector []float32) domain.Record {
	return domain.Record{
		ID:         domain.ChunkID(docID, index),
		Vector:     vector,
		Text:       "chunk text",
		Metadata:   map[string]string{"source": "test"},
		DocumentID: docID,
		Index:      index,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store := setupTestStore(t)
	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-apply migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStore_SaveAndGetDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1")

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "Test Document doc-1", doc.Title)
	assert.Equal(t, "test content", doc.Content)
	assert.Equal(t, "test", doc.Metadata["source"])
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveDocument_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1")
	err := store.SaveDocument(ctx, &domain.Document{
		ID:      "doc-1",
		Title:   "Replaced",
		Content: "new content",
	})
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Replaced", doc.Title)
	assert.Equal(t, "new content", doc.Content)
}

func TestStore_UpsertAndGetRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	rec := testRecord("doc-1", 0, []float32{0.1, 0.2, 0.3})
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{rec}))

	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Vector, got.Vector)
	assert.Equal(t, "chunk text", got.Text)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, "test", got.Metadata["source"])
}

func TestStore_UpsertRecords_LastWriterWins(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	rec := testRecord("doc-1", 0, []float32{1, 0})
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{rec}))

	rec.Vector = []float32{0, 1}
	rec.Text = "replaced"
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{rec}))

	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)
	assert.Equal(t, "replaced", got.Text)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
}

func TestStore_UpsertRecords_InvalidInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	err := store.UpsertRecords(ctx, []domain.Record{{ID: "", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.UpsertRecords(ctx, []domain.Record{{ID: "doc-1-0000"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ListRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")
	saveTestDocument(t, store, "doc-2")

	// Insert out of order to exercise the ORDER BY.
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{
		testRecord("doc-1", 2, []float32{3}),
		testRecord("doc-1", 0, []float32{1}),
		testRecord("doc-1", 1, []float32{2}),
		testRecord("doc-2", 0, []float32{4}),
	}))

	records, err := store.ListRecords(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i, rec.Index)
	}

	all, err := store.ListRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_DeleteDocument_CascadesRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{
		testRecord("doc-1", 0, []float32{1}),
		testRecord("doc-1", 1, []float32{2}),
	}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := store.ListRecords(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_Stats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, 0, stats.Documents)
	assert.Zero(t, stats.AvgChunkLen)

	saveTestDocument(t, store, "doc-1")
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{
		testRecord("doc-1", 0, []float32{1}),
		testRecord("doc-1", 1, []float32{2}),
		testRecord("doc-1", 2, []float32{3}),
	}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 1, stats.Documents)
	assert.InDelta(t, float64(len("chunk text")), stats.AvgChunkLen, 1e-9)
}

func TestStore_Dimensions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dims, err := store.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dims)

	saveTestDocument(t, store, "doc-1")
	require.NoError(t, store.UpsertRecords(ctx, []domain.Record{
		testRecord("doc-1", 0, []float32{1, 2, 3, 4}),
	}))

	dims, err = store.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{"nil", nil},
		{"single", []float32{0.5}},
		{"several", []float32{-1.5, 0, 3.25, 1e-7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := bytesToFloat32Slice(float32SliceToBytes(tt.in))
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestStore_StoreIOError_AfterClose(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Stats(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreIO))
}
