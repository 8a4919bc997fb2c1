package memory_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/memory"
	"github.com/soulweave/rose/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor answers every structured completion with a fixed extraction
// verdict.
type fakeExtractor struct {
	mu               sync.Mutex
	worthRemembering bool
	fact             string
	err              error
	calls            int
	model            string
}

func (f *fakeExtractor) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeExtractor) CompleteJSON(ctx context.Context, req provider.CompletionRequest, out any) error {
	f.mu.Lock()
	f.calls++
	f.model = req.Model
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(map[string]any{
		"worth_remembering": f.worthRemembering,
		"fact":              f.fact,
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// fakeEmbedder maps known texts to fixed vectors so similarity is under the
// test's control.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.vectors[text]; ok {
			out[i] = vec
		} else {
			out[i] = f.fallback
		}
	}
	return out, nil
}

// failingStore rejects every operation, standing in for an unreachable
// vector database.
type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, m *memory.Memory) error {
	return errors.New("store unreachable")
}

func (failingStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]memory.ScoredMemory, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) Delete(ctx context.Context, id string) error {
	return errors.New("store unreachable")
}

func (failingStore) Close() error { return nil }

func testMemoryConfig() *config.MemoryConfig {
	return &config.MemoryConfig{
		Backend:        "memory",
		EmbeddingDim:   4,
		DedupThreshold: 0.90,
		RetrieveTopK:   5,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestManager_ExtractAndStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	model := &fakeExtractor{worthRemembering: true, fact: "The user's dog died recently"}
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}

	manager := memory.NewManager(testLogger(), model, embedder, store, testMemoryConfig(), "router-model")

	stored, err := manager.ExtractAndStore(ctx, "session-1", "My dog died yesterday")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "The user's dog died recently", stored.Text)
	assert.Equal(t, "session-1", stored.SessionID)
	assert.NotEmpty(t, stored.ID)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored.ID, results[0].Memory.ID)
}

func TestManager_ExtractAndStore_UsesConfiguredModel(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{worthRemembering: true, fact: "The user lives in Porto"}
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}

	manager := memory.NewManager(testLogger(), model, embedder, memory.NewInMemoryStore(), testMemoryConfig(), "extract-model")

	_, err := manager.ExtractAndStore(ctx, "s", "I live in Porto")
	require.NoError(t, err)
	assert.Equal(t, "extract-model", model.model, "extraction runs on the configured model")
}

func TestManager_ExtractAndStore_DedupSkipsNearDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	model := &fakeExtractor{worthRemembering: true, fact: "The user's dog died recently"}
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}

	manager := memory.NewManager(testLogger(), model, embedder, store, testMemoryConfig(), "router-model")

	first, err := manager.ExtractAndStore(ctx, "session-1", "My dog died yesterday")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same fact again. The embedding is identical, so cosine similarity is
	// 1.0 and the write must be skipped.
	second, err := manager.ExtractAndStore(ctx, "session-1", "I mentioned my dog passed away")
	require.NoError(t, err)
	assert.Nil(t, second)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1, "duplicate fact must not be stored twice")
}

func TestManager_ExtractAndStore_DistinctFactsBothStored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	model := &fakeExtractor{worthRemembering: true, fact: "fact one"}
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"fact one": {1, 0, 0, 0},
			"fact two": {0, 1, 0, 0},
		},
	}

	manager := memory.NewManager(testLogger(), model, embedder, store, testMemoryConfig(), "router-model")

	first, err := manager.ExtractAndStore(ctx, "s", "something")
	require.NoError(t, err)
	require.NotNil(t, first)

	model.fact = "fact two"
	second, err := manager.ExtractAndStore(ctx, "s", "something else")
	require.NoError(t, err)
	require.NotNil(t, second)

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestManager_ExtractAndStore_NothingRetainable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	model := &fakeExtractor{worthRemembering: false}
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}

	manager := memory.NewManager(testLogger(), model, embedder, store, testMemoryConfig(), "router-model")

	stored, err := manager.ExtractAndStore(ctx, "s", "Hello, how are you?")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestManager_ExtractAndStore_EmptyMessage(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{worthRemembering: true, fact: "anything"}
	manager := memory.NewManager(testLogger(), model, &fakeEmbedder{}, memory.NewInMemoryStore(), testMemoryConfig(), "router-model")

	stored, err := manager.ExtractAndStore(ctx, "s", "   ")
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Zero(t, model.calls, "no model call for empty input")
}

func TestManager_ExtractAndStore_SwallowsModelFailure(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{err: errors.New("model down")}
	manager := memory.NewManager(testLogger(), model, &fakeEmbedder{}, memory.NewInMemoryStore(), testMemoryConfig(), "router-model")

	stored, err := manager.ExtractAndStore(ctx, "s", "My dog died yesterday")
	require.NoError(t, err, "extraction failure must not fail the turn")
	assert.Nil(t, stored)
}

func TestManager_ExtractAndStore_SwallowsStoreFailure(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{worthRemembering: true, fact: "The user works as a nurse"}
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}
	manager := memory.NewManager(testLogger(), model, embedder, failingStore{}, testMemoryConfig(), "router-model")

	stored, err := manager.ExtractAndStore(ctx, "s", "I work as a nurse")
	require.NoError(t, err, "store failure must not fail the turn")
	assert.Nil(t, stored)
}

func TestManager_RetrieveRelevant(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	require.NoError(t, store.Upsert(ctx, &memory.Memory{
		ID:        "m1",
		Text:      "The user's dog died recently",
		Embedding: []float32{1, 0, 0, 0},
	}))
	require.NoError(t, store.Upsert(ctx, &memory.Memory{
		ID:        "m2",
		Text:      "The user lives in Lisbon",
		Embedding: []float32{0, 1, 0, 0},
	}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"how is your dog": {0.9, 0.1, 0, 0},
	}}
	manager := memory.NewManager(testLogger(), &fakeExtractor{}, embedder, store, testMemoryConfig(), "router-model")

	memories := manager.RetrieveRelevant(ctx, "how is your dog", 1)
	require.Len(t, memories, 1)
	assert.Equal(t, "The user's dog died recently", memories[0].Text)
}

func TestManager_RetrieveRelevant_StoreUnreachable(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}
	manager := memory.NewManager(testLogger(), &fakeExtractor{}, embedder, failingStore{}, testMemoryConfig(), "router-model")

	memories := manager.RetrieveRelevant(ctx, "anything", 5)
	assert.Empty(t, memories, "unreachable store degrades to no memories, not an error")
}

func TestManager_RetrieveRelevant_EmbedderFailure(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{err: errors.New("embedder down")}
	manager := memory.NewManager(testLogger(), &fakeExtractor{}, embedder, memory.NewInMemoryStore(), testMemoryConfig(), "router-model")

	memories := manager.RetrieveRelevant(ctx, "anything", 5)
	assert.Empty(t, memories)
}

func TestFormatForInjection(t *testing.T) {
	assert.Equal(t, "", memory.FormatForInjection(nil))

	formatted := memory.FormatForInjection([]memory.Memory{
		{Text: "The user's dog died recently"},
		{Text: "The user lives in Lisbon"},
	})
	assert.Equal(t,
		"Things you remember about this person from past conversations:\n"+
			"- The user's dog died recently\n"+
			"- The user lives in Lisbon",
		formatted)
}
