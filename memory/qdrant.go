package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/soulweave/rose/config"
)

// QdrantStore keeps memories as points in a Qdrant collection, searched with
// cosine similarity over the Qdrant HTTP API.
type QdrantStore struct {
	endpoint   string
	collection string
	vecDim     int
	httpClient *http.Client
}

var _ Store = (*QdrantStore)(nil)

func NewQdrantStore(ctx context.Context, conf *config.MemoryConfig) (*QdrantStore, error) {
	s := &QdrantStore{
		endpoint:   conf.QdrantEndpoint,
		collection: conf.QdrantCollection,
		vecDim:     conf.EmbeddingDim,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/collections/%s", s.endpoint, s.collection),
		nil,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "qdrant: failed to check collection")
	}
	resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return errors.Errorf("qdrant: get collection status %s", resp.Status)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.vecDim,
			"distance": "Cosine",
		},
	}
	b, _ := json.Marshal(body)

	req, err = http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		fmt.Sprintf("%s/collections/%s", s.endpoint, s.collection),
		bytes.NewReader(b),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "qdrant: failed to create collection")
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("qdrant: create collection status %s", resp.Status)
	}

	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, memory *Memory) error {
	if memory.ID == "" {
		return errors.New("memory id is empty")
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":     memory.ID,
				"vector": memory.Embedding,
				"payload": map[string]any{
					"text":       memory.Text,
					"session_id": memory.SessionID,
					"created_at": memory.CreatedAt.UTC().Format(time.RFC3339),
				},
			},
		},
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.endpoint, s.collection),
		bytes.NewReader(b),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "qdrant: upsert failed")
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("qdrant: upsert status %s", resp.Status)
	}

	return nil
}

func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredMemory, error) {
	if len(queryEmbedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	body := map[string]any{
		"vector":       queryEmbedding,
		"limit":        limit,
		"with_payload": true,
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.endpoint, s.collection),
		bytes.NewReader(b),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "qdrant: search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, errors.Errorf("qdrant: search status %s", resp.Status)
	}

	var out struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "qdrant: failed to decode search response")
	}

	results := make([]ScoredMemory, 0, len(out.Result))
	for _, r := range out.Result {
		mem := &Memory{
			ID:   r.ID,
			Text: fmt.Sprintf("%v", r.Payload["text"]),
		}
		if v, ok := r.Payload["session_id"].(string); ok {
			mem.SessionID = v
		}
		if v, ok := r.Payload["created_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				mem.CreatedAt = t
			}
		}

		results = append(results, ScoredMemory{
			Memory: mem,
			Score:  r.Score,
		})
	}

	return results, nil
}

func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	body := map[string]any{
		"points": []string{id},
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.endpoint, s.collection),
		bytes.NewReader(b),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "qdrant: delete failed")
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("qdrant: delete status %s", resp.Status)
	}

	return nil
}

func (s *QdrantStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
