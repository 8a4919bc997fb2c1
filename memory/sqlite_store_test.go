//go:build !without_sqlite

package memory_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/soulweave/rose/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSqliteStore(t *testing.T, dim int) *memory.SqliteStore {
	t.Helper()

	store, err := memory.NewSqliteStore(filepath.Join(t.TempDir(), "memories.db"), dim)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSqliteStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, 4)

	memories := []*memory.Memory{
		{ID: "m1", Text: "The user has a cat", SessionID: "s1", CreatedAt: time.Now().UTC(), Embedding: []float32{1, 0, 0, 0}},
		{ID: "m2", Text: "The user plays guitar", SessionID: "s1", CreatedAt: time.Now().UTC(), Embedding: []float32{0, 1, 0, 0}},
	}
	for _, m := range memories {
		require.NoError(t, store.Upsert(ctx, m))
	}

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Memory.ID)
	assert.Equal(t, "The user has a cat", results[0].Memory.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestSqliteStore_UpsertReplacesVector(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, 2)

	require.NoError(t, store.Upsert(ctx, &memory.Memory{
		ID: "m1", Text: "old", CreatedAt: time.Now().UTC(), Embedding: []float32{1, 0},
	}))
	require.NoError(t, store.Upsert(ctx, &memory.Memory{
		ID: "m1", Text: "new", CreatedAt: time.Now().UTC(), Embedding: []float32{0, 1},
	}))

	results, err := store.Search(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Memory.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestSqliteStore_SearchEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, 2)

	results, err := store.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSqliteStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, 2)

	require.NoError(t, store.Upsert(ctx, &memory.Memory{
		ID: "m1", Text: "gone soon", CreatedAt: time.Now().UTC(), Embedding: []float32{1, 0},
	}))
	require.NoError(t, store.Delete(ctx, "m1"))

	results, err := store.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
