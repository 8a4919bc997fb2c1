package checkpoint

import (
	"context"
	"sync"

	"github.com/soulweave/rose/workflow"
)

type (
	// Store persists one conversation state snapshot per session. Load
	// returns nil (no error) for an unknown session; callers start fresh.
	Store interface {
		Load(ctx context.Context, sessionID string) (*workflow.State, error)
		Save(ctx context.Context, state *workflow.State) error
		Delete(ctx context.Context, sessionID string) error
		Close() error
	}

	// InMemoryStore keeps checkpoints in a map; used in tests and
	// throwaway sessions.
	InMemoryStore struct {
		mu     sync.RWMutex
		states map[string]workflow.State
	}
)

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states: make(map[string]workflow.State),
	}
}

func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*workflow.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}

	return cloneState(&state), nil
}

func (s *InMemoryStore) Save(ctx context.Context, state *workflow.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.SessionID] = *cloneState(state)
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// cloneState copies the persisted fields so callers never alias the stored
// message slice. Transient fields do not survive a round-trip, matching the
// durable stores.
func cloneState(state *workflow.State) *workflow.State {
	return &workflow.State{
		SessionID: state.SessionID,
		Messages:  append([]workflow.Message(nil), state.Messages...),
		Summary:   state.Summary,
		Decision:  state.Decision,
	}
}
