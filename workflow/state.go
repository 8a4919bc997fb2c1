package workflow

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoutingDecision selects which terminal response node runs for a turn.
// DecisionImage exists for forward compatibility but is disabled by policy:
// the router normalizes it to DecisionAudio and never emits it.
type RoutingDecision string

const (
	DecisionConversation RoutingDecision = "conversation"
	DecisionAudio        RoutingDecision = "audio"
	DecisionImage        RoutingDecision = "image"
)

type (
	Message struct {
		Role      Role      `json:"role"`
		Content   string    `json:"content"`
		AudioRef  string    `json:"audio_ref,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// State is the unit of work flowing through the graph for one turn.
	// Persisted fields round-trip through the checkpoint store; the rest is
	// request-scoped scratch that dies with the turn.
	State struct {
		SessionID string          `json:"session_id"`
		Messages  []Message       `json:"messages"`
		Summary   string          `json:"summary,omitempty"`
		Decision  RoutingDecision `json:"routing_decision,omitempty"`

		// MemoryContext is built by the memory-injection node from
		// retrieved memories; never persisted.
		MemoryContext string `json:"-"`

		// ContextInfo carries non-memory context (availability, time of
		// day) attached by the context-injection node.
		ContextInfo string `json:"-"`

		// ResponseAudio holds synthesized speech for the new assistant
		// message, when the audio path ran and TTS succeeded.
		ResponseAudio []byte `json:"-"`

		// Fallback marks a turn whose terminal node could not produce a
		// real reply. The caller must not checkpoint such a turn; the
		// session keeps its last good state.
		Fallback bool `json:"-"`
	}
)

func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
	}
}

func (s *State) AppendMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// LastUserMessage returns the content of the most recent user turn, or ""
// when none exists.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the most recent assistant turn, or nil.
func (s *State) LastAssistantMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return &s.Messages[i]
		}
	}
	return nil
}
