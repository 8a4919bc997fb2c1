package config

type MemoryConfig struct {
	// Backend selects the vector store implementation.
	// Options: "sqlite" (embedded, default), "qdrant", "memory" (tests).
	Backend string `env:"ROSE_MEMORY_BACKEND"`

	// SqlitePath specifies the file path for the sqlite-vec database.
	SqlitePath string `env:"ROSE_MEMORY_SQLITE_PATH"`

	QdrantEndpoint   string `env:"QDRANT_ENDPOINT"`
	QdrantCollection string `env:"QDRANT_COLLECTION"`

	// EmbeddingDim must match the embedding model's output dimension.
	EmbeddingDim int

	// DedupThreshold is the cosine similarity above which a candidate memory
	// counts as a duplicate of a stored one and the write is skipped.
	DedupThreshold float64

	// RetrieveTopK bounds how many memories are injected per turn.
	RetrieveTopK int

	// CheckpointPath specifies the file path for the session checkpoint
	// database. ":memory:" keeps checkpoints in process memory only.
	CheckpointPath string `env:"ROSE_CHECKPOINT_PATH"`
}

func NewMemoryConfig() *MemoryConfig {
	config := &MemoryConfig{
		Backend:          "sqlite",
		SqlitePath:       ":memory:",
		QdrantEndpoint:   "http://localhost:6333",
		QdrantCollection: "rose_memories",
		EmbeddingDim:     1536,
		DedupThreshold:   0.90,
		RetrieveTopK:     5,
		CheckpointPath:   ":memory:",
	}
	if err := resolveConfig(config); err != nil {
		return config
	}
	return config
}
