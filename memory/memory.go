package memory

import "time"

type (
	// Memory is a durable fact extracted from conversation. Immutable once
	// stored; duplicates are skipped at write time, never merged.
	Memory struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		SessionID string    `json:"session_id,omitempty"`
		CreatedAt time.Time `json:"created_at"`

		Embedding []float32 `json:"-"`
	}

	// ScoredMemory holds a memory with its cosine similarity to a query.
	ScoredMemory struct {
		Memory *Memory `json:"memory"`
		Score  float64 `json:"score"`
	}
)
