package review

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	return store
}

func sampleReview(sessionID string) *Review {
	return &Review{
		SessionID:       sessionID,
		SuggestedModule: 1,
		ConfirmedModule: 1,
		Agreed:          true,
		Confidence:      0.57,
		Observed:        []string{"HP:0000510"},
		Excluded:        []string{"HP:0000365"},
		Notes:           "Matches rod-cone presentation",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "reviews.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Creates missing directories and the database file.
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSave(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rv := sampleReview("session-1")
	require.NoError(t, store.Save(ctx, rv))

	assert.NotZero(t, rv.ID)
	assert.False(t, rv.CreatedAt.IsZero())
	assert.False(t, rv.UpdatedAt.IsZero())
}

func TestSaveUpdatesExisting(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rv := sampleReview("session-1")
	require.NoError(t, store.Save(ctx, rv))
	firstID := rv.ID

	update := sampleReview("session-1")
	update.ConfirmedModule = 2
	update.Agreed = false
	update.Notes = "Hearing loss points at module 2"
	require.NoError(t, store.Save(ctx, update))

	// Same session, same row.
	assert.Equal(t, firstID, update.ID)

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ConfirmedModule)
	assert.False(t, got.Agreed)
	assert.Equal(t, []string{"HP:0000510"}, got.Observed)
	assert.Equal(t, []string{"HP:0000365"}, got.Excluded)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, sampleReview(fmt.Sprintf("session-%d", i))))
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rv := sampleReview("session-1")
	require.NoError(t, store.Save(ctx, rv))
	require.NoError(t, store.Delete(ctx, rv.ID))

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExportImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleReview("session-1")))
	require.NoError(t, store.Save(ctx, sampleReview("session-2")))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), "session-1")

	// Import into a fresh store.
	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Re-importing skips everything.
	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)
}
