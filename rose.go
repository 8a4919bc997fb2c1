package rose

import (
	"context"
	"log/slog"

	"github.com/soulweave/rose/checkpoint"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/entity"
	"github.com/soulweave/rose/errors"
	"github.com/soulweave/rose/internal/mylog"
	"github.com/soulweave/rose/internal/sessionlock"
	"github.com/soulweave/rose/memory"
	"github.com/soulweave/rose/provider"
	"github.com/soulweave/rose/speech"
	"github.com/soulweave/rose/workflow"
)

type (
	// Runtime is the top-level entry point. It owns one persona, the model
	// clients, both memory tiers and the wired conversation graph, and runs
	// complete turns through Converse.
	Runtime struct {
		logger      *slog.Logger
		model       provider.ChatService
		embedder    provider.Embedder
		memoryStore memory.Store
		memories    *memory.Manager
		checkpoints checkpoint.Store
		transcriber speech.Transcriber
		synthesizer speech.Synthesizer
		persona     *entity.Persona
		graph       *workflow.Graph
		locks       *sessionlock.Locker

		modelConfig    *config.ModelConfig
		memoryConfig   *config.MemoryConfig
		speechConfig   *config.SpeechConfig
		workflowConfig *config.WorkflowConfig
		logConfig      *config.LogConfig
	}
	Option func(*Runtime)
)

// ConverseRequest is one user turn. Exactly one of Text or Audio must be
// set; Audio additionally needs AudioFormat (e.g. "wav", "mp3").
type ConverseRequest struct {
	SessionID   string
	Text        string
	Audio       []byte
	AudioFormat string
}

// ConverseResponse is the assistant's reply for the turn. Audio is nil when
// the turn was routed to plain conversation or when synthesis was skipped.
type ConverseResponse struct {
	Text     string
	Audio    []byte
	Decision workflow.RoutingDecision
}

func NewRuntime(ctx context.Context, optionFuncs ...Option) (*Runtime, error) {
	r := &Runtime{
		modelConfig:    config.NewModelConfig(),
		memoryConfig:   config.NewMemoryConfig(),
		speechConfig:   config.NewSpeechConfig(),
		workflowConfig: config.NewWorkflowConfig(),
		logConfig:      config.NewLogConfig(),
		locks:          sessionlock.New(),
	}
	for _, f := range optionFuncs {
		f(r)
	}

	if r.logger == nil {
		r.logger = mylog.NewLogger(r.logConfig.LogLevel, r.logConfig.LogHandler)
	}

	if r.persona == nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "persona is required")
	}

	if r.model == nil {
		r.model = provider.NewChatService(r.modelConfig)
	}
	if r.embedder == nil {
		r.embedder = provider.NewEmbedder(r.modelConfig)
	}

	if r.memoryStore == nil {
		var err error
		switch r.memoryConfig.Backend {
		case "memory":
			r.memoryStore = memory.NewInMemoryStore()
		case "qdrant":
			r.memoryStore, err = memory.NewQdrantStore(ctx, r.memoryConfig)
		case "sqlite":
			r.memoryStore, err = memory.NewSqliteStore(r.memoryConfig.SqlitePath, r.memoryConfig.EmbeddingDim)
		default:
			err = errors.Wrapf(errors.ErrInvalidConfig, "unknown memory backend %q", r.memoryConfig.Backend)
		}
		if err != nil {
			return nil, err
		}
	}
	r.memories = memory.NewManager(r.logger, r.model, r.embedder, r.memoryStore, r.memoryConfig, r.modelConfig.RouterModel)

	if r.checkpoints == nil {
		if r.memoryConfig.CheckpointPath == ":memory:" {
			r.checkpoints = checkpoint.NewInMemoryStore()
		} else {
			store, err := checkpoint.NewSqliteStore(r.memoryConfig.CheckpointPath)
			if err != nil {
				return nil, err
			}
			r.checkpoints = store
		}
	}

	// The persona's voice, when set, wins over the configured default.
	if r.persona.VoiceID != "" {
		r.speechConfig.VoiceID = r.persona.VoiceID
	}

	if r.transcriber == nil {
		r.transcriber = speech.NewResilientTranscriber(
			speech.NewGroqTranscriber(r.modelConfig, r.speechConfig),
			r.speechConfig,
		)
	}
	if r.synthesizer == nil {
		r.synthesizer = speech.NewResilientSynthesizer(
			speech.NewElevenLabsSynthesizer(r.speechConfig),
			r.speechConfig,
		)
	}

	nodes := workflow.NewNodes(
		r.logger,
		r.model,
		r.memories,
		r.synthesizer,
		r.persona,
		r.modelConfig,
		r.memoryConfig,
		r.workflowConfig,
	)
	r.graph = nodes.Graph()

	return r, nil
}

func (r *Runtime) Persona() *entity.Persona {
	return r.persona
}

// Converse runs one complete turn. Turns for the same session are serialized
// in arrival order; turns for different sessions run concurrently.
//
// The reply is best effort: downstream model or synthesis failures degrade
// to a spoken-style fallback line rather than an error. Converse returns an
// error only when the request itself is unusable, transcription of an audio
// request fails, or the turn could not produce any state to reply from. No
// checkpoint is written for a failed or fallback turn.
func (r *Runtime) Converse(ctx context.Context, req ConverseRequest) (*ConverseResponse, error) {
	if req.SessionID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "session id is required")
	}
	if req.Text == "" && len(req.Audio) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "either text or audio input is required")
	}
	if req.Text != "" && len(req.Audio) > 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "text and audio inputs are mutually exclusive")
	}

	r.locks.Lock(req.SessionID)
	defer r.locks.Unlock(req.SessionID)

	ctx, cancel := context.WithTimeout(ctx, r.workflowConfig.TurnTimeout)
	defer cancel()

	text := req.Text
	if len(req.Audio) > 0 {
		transcript, err := r.transcriber.Transcribe(ctx, req.Audio, req.AudioFormat)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transcribe audio input")
		}
		text = transcript
	}

	st, err := r.checkpoints.Load(ctx, req.SessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load session %s", req.SessionID)
	}
	if st == nil {
		st = workflow.NewState(req.SessionID)
	}
	st.AppendMessage(workflow.RoleUser, text)

	if err := r.graph.Invoke(ctx, st); err != nil {
		// The caller still gets a reply, but the session keeps its last
		// good checkpoint so a retried turn starts clean.
		r.logger.Error("turn aborted, replying with fallback", "session", req.SessionID, "error", err)
		return &ConverseResponse{Text: workflow.FallbackReply}, nil
	}

	reply := st.LastAssistantMessage()
	if reply == nil {
		return nil, errors.Wrapf(errors.ErrInternal, "turn finished without an assistant message")
	}

	if st.Fallback {
		// The reply is the canned line, not real conversation; persisting it
		// would pollute the history, so the session keeps its last good
		// checkpoint and a retried turn starts clean.
		r.logger.Warn("turn degraded to fallback, skipping checkpoint", "session", req.SessionID)
		return &ConverseResponse{
			Text:     reply.Content,
			Audio:    st.ResponseAudio,
			Decision: st.Decision,
		}, nil
	}

	if err := r.checkpoints.Save(ctx, st); err != nil {
		r.logger.Warn("failed to save session checkpoint", "session", req.SessionID, "error", err)
	}

	return &ConverseResponse{
		Text:     reply.Content,
		Audio:    st.ResponseAudio,
		Decision: st.Decision,
	}, nil
}

// ResetSession discards the session's checkpoint. Long-term memories
// extracted from the session are kept.
func (r *Runtime) ResetSession(ctx context.Context, sessionID string) error {
	r.locks.Lock(sessionID)
	defer r.locks.Unlock(sessionID)
	return r.checkpoints.Delete(ctx, sessionID)
}

// Memories exposes the long-term memory manager, mainly for inspection
// tooling and tests.
func (r *Runtime) Memories() *memory.Manager {
	return r.memories
}

func (r *Runtime) Close() error {
	var firstErr error
	if err := r.checkpoints.Close(); err != nil {
		firstErr = err
	}
	if err := r.memoryStore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
