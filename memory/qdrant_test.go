package memory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant serves just enough of the Qdrant HTTP API for the store.
type fakeQdrant struct {
	collectionExists bool
	created          bool
	upserted         []json.RawMessage
	searchResult     string
	deleted          []string
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !f.collectionExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"result": {}}`))
	})
	mux.HandleFunc("PUT /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.created = true
		f.collectionExists = true
		w.Write([]byte(`{"result": true}`))
	})
	mux.HandleFunc("PUT /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []json.RawMessage `json:"points"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.upserted = append(f.upserted, body.Points...)
		w.Write([]byte(`{"result": {"status": "completed"}}`))
	})
	mux.HandleFunc("POST /collections/{name}/points/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(f.searchResult))
	})
	mux.HandleFunc("POST /collections/{name}/points/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []string `json:"points"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.deleted = append(f.deleted, body.Points...)
		w.Write([]byte(`{"result": {"status": "completed"}}`))
	})

	return mux
}

func newFakeQdrantStore(t *testing.T, fake *fakeQdrant) *memory.QdrantStore {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store, err := memory.NewQdrantStore(context.Background(), &config.MemoryConfig{
		QdrantEndpoint:   server.URL,
		QdrantCollection: "test_memories",
		EmbeddingDim:     4,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestQdrantStore_CreatesMissingCollection(t *testing.T) {
	fake := &fakeQdrant{collectionExists: false}
	newFakeQdrantStore(t, fake)
	assert.True(t, fake.created)
}

func TestQdrantStore_KeepsExistingCollection(t *testing.T) {
	fake := &fakeQdrant{collectionExists: true}
	newFakeQdrantStore(t, fake)
	assert.False(t, fake.created)
}

func TestQdrantStore_Upsert(t *testing.T) {
	fake := &fakeQdrant{collectionExists: true}
	store := newFakeQdrantStore(t, fake)

	err := store.Upsert(context.Background(), &memory.Memory{
		ID:        "5f9c3b2a-0000-0000-0000-000000000001",
		Text:      "The user has a cat",
		SessionID: "s1",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Embedding: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, fake.upserted, 1)

	var point struct {
		ID      string    `json:"id"`
		Vector  []float32 `json:"vector"`
		Payload struct {
			Text      string `json:"text"`
			SessionID string `json:"session_id"`
			CreatedAt string `json:"created_at"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(fake.upserted[0], &point))
	assert.Equal(t, "5f9c3b2a-0000-0000-0000-000000000001", point.ID)
	assert.Equal(t, []float32{1, 0, 0, 0}, point.Vector)
	assert.Equal(t, "The user has a cat", point.Payload.Text)
	assert.Equal(t, "s1", point.Payload.SessionID)
	assert.Equal(t, "2026-08-01T12:00:00Z", point.Payload.CreatedAt)
}

func TestQdrantStore_Search(t *testing.T) {
	fake := &fakeQdrant{
		collectionExists: true,
		searchResult: `{"result": [
			{"id": "m1", "score": 0.97, "payload": {"text": "The user has a cat", "session_id": "s1", "created_at": "2026-08-01T12:00:00Z"}},
			{"id": "m2", "score": 0.41, "payload": {"text": "The user plays guitar", "session_id": "s1", "created_at": "2026-08-02T09:30:00Z"}}
		]}`,
	}
	store := newFakeQdrantStore(t, fake)

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m1", results[0].Memory.ID)
	assert.Equal(t, "The user has a cat", results[0].Memory.Text)
	assert.Equal(t, "s1", results[0].Memory.SessionID)
	assert.InDelta(t, 0.97, results[0].Score, 1e-9)
	assert.Equal(t, "m2", results[1].Memory.ID)
}

func TestQdrantStore_SearchEmptyEmbedding(t *testing.T) {
	store := newFakeQdrantStore(t, &fakeQdrant{collectionExists: true})

	_, err := store.Search(context.Background(), nil, 5)
	require.Error(t, err)
}

func TestQdrantStore_Delete(t *testing.T) {
	fake := &fakeQdrant{collectionExists: true}
	store := newFakeQdrantStore(t, fake)

	require.NoError(t, store.Delete(context.Background(), "m1"))
	assert.Equal(t, []string{"m1"}, fake.deleted)
}
