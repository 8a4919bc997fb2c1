package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type (
	// Store is the vector similarity boundary for memories.
	Store interface {
		Upsert(ctx context.Context, memory *Memory) error
		Search(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredMemory, error)
		Delete(ctx context.Context, id string) error
		Close() error
	}

	// InMemoryStore is a simple in-memory implementation used in tests and
	// single-process development.
	InMemoryStore struct {
		mu       sync.RWMutex
		memories map[string]*Memory
	}
)

var (
	_ Store = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories: make(map[string]*Memory),
	}
}

func (s *InMemoryStore) Upsert(ctx context.Context, memory *Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if memory.ID == "" {
		return errors.New("memory id is empty")
	}

	s.memories[memory.ID] = memory
	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryEmbedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	// Only memories with matching embedding dimensions participate.
	var validMemories []*Memory
	for _, memory := range s.memories {
		if len(memory.Embedding) == len(queryEmbedding) {
			validMemories = append(validMemories, memory)
		}
	}

	if len(validMemories) == 0 {
		return []ScoredMemory{}, nil
	}

	numMemories := len(validMemories)
	embeddingDim := len(queryEmbedding)

	queryVec := make([]float64, embeddingDim)
	for i, v := range queryEmbedding {
		queryVec[i] = float64(v)
	}

	memoryData := make([]float64, numMemories*embeddingDim)
	for i, memory := range validMemories {
		for j, v := range memory.Embedding {
			memoryData[i*embeddingDim+j] = float64(v)
		}
	}

	queryVector := mat.NewVecDense(embeddingDim, queryVec)
	memoryMatrix := mat.NewDense(numMemories, embeddingDim, memoryData)

	// memoryMatrix * queryVector gives all dot products in one pass.
	var resultVec mat.VecDense
	resultVec.MulVec(memoryMatrix, queryVector)

	queryNorm := mat.Norm(queryVector, 2)

	scoredResults := make([]ScoredMemory, 0, numMemories)
	for i, memory := range validMemories {
		rowNorm := mat.Norm(memoryMatrix.RowView(i), 2)
		if queryNorm == 0 || rowNorm == 0 {
			continue
		}

		scoredResults = append(scoredResults, ScoredMemory{
			Memory: memory,
			Score:  resultVec.AtVec(i) / (queryNorm * rowNorm),
		})
	}

	sort.Slice(scoredResults, func(i, j int) bool {
		return scoredResults[i].Score > scoredResults[j].Score
	})

	if limit > 0 && len(scoredResults) > limit {
		scoredResults = scoredResults[:limit]
	}

	return scoredResults, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
