package workflow

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/entity"
	"github.com/soulweave/rose/memory"
	"github.com/soulweave/rose/provider"
	"github.com/soulweave/rose/speech"
)

// Node names.
const (
	NodeExtractMemories      = "extract_memories"
	NodeRouter               = "router"
	NodeInjectContext        = "inject_context"
	NodeInjectMemories       = "inject_memories"
	NodeConversationResponse = "conversation_response"
	NodeAudioResponse        = "audio_response"
	NodeSummarize            = "summarize"
)

// FallbackReply is appended when a terminal response node cannot produce any
// text. The graph's external contract is a new assistant message, always.
const FallbackReply = "I'm having trouble finding my words right now. Give me a moment and ask me again."

// Nodes holds the node set with its injected dependencies. Build the wired
// graph with Graph().
type Nodes struct {
	logger      *slog.Logger
	model       provider.ChatService
	memory      *memory.Manager
	synthesizer speech.Synthesizer
	persona     *entity.Persona

	modelConf  *config.ModelConfig
	memoryConf *config.MemoryConfig
	conf       *config.WorkflowConfig
}

func NewNodes(
	logger *slog.Logger,
	model provider.ChatService,
	memoryManager *memory.Manager,
	synthesizer speech.Synthesizer,
	persona *entity.Persona,
	modelConf *config.ModelConfig,
	memoryConf *config.MemoryConfig,
	conf *config.WorkflowConfig,
) *Nodes {
	return &Nodes{
		logger:      logger,
		model:       model,
		memory:      memoryManager,
		synthesizer: synthesizer,
		persona:     persona,
		modelConf:   modelConf,
		memoryConf:  memoryConf,
		conf:        conf,
	}
}

// Graph wires the fixed node topology:
//
//	extract → router → context → memories → {conversation | audio} → summarize → end
func (n *Nodes) Graph() *Graph {
	return NewGraph().
		AddNode(NodeExtractMemories, n.ExtractMemories).
		AddNode(NodeRouter, n.Route).
		AddNode(NodeInjectContext, n.InjectContext).
		AddNode(NodeInjectMemories, n.InjectMemories).
		AddNode(NodeConversationResponse, n.ConversationResponse).
		AddNode(NodeAudioResponse, n.AudioResponse).
		AddNode(NodeSummarize, n.Summarize).
		SetEntry(NodeExtractMemories).
		AddEdge(NodeExtractMemories, NodeRouter).
		AddEdge(NodeRouter, NodeInjectContext).
		AddEdge(NodeInjectContext, NodeInjectMemories).
		AddConditionalEdge(NodeInjectMemories, func(st *State) string {
			if st.Decision == DecisionConversation {
				return NodeConversationResponse
			}
			return NodeAudioResponse
		}).
		AddEdge(NodeConversationResponse, NodeSummarize).
		AddEdge(NodeAudioResponse, NodeSummarize).
		AddEdge(NodeSummarize, End)
}

// ExtractMemories hands the new user message to the memory manager. The
// manager already swallows its own failures; nothing here can fail the turn.
func (n *Nodes) ExtractMemories(ctx context.Context, st *State) error {
	if n.memory == nil {
		return nil
	}

	message := st.LastUserMessage()
	if message == "" {
		return nil
	}

	if _, err := n.memory.ExtractAndStore(ctx, st.SessionID, message); err != nil {
		n.logger.Warn("memory extraction failed", "error", err)
	}

	return nil
}

// Route decides between the conversation and audio response paths. The image
// route exists in the decision type but is disabled: the router never emits
// it, and an LLM answer naming it falls through to audio. Ambiguity and
// classification failure also default to audio, voice-first.
func (n *Nodes) Route(ctx context.Context, st *State) error {
	st.Decision = DecisionAudio

	var output struct {
		Route string `json:"route"`
	}
	err := n.model.CompleteJSON(ctx, provider.CompletionRequest{
		Model: n.modelConf.RouterModel,
		Messages: []provider.ChatMessage{
			{Role: provider.RoleUser, Content: fmt.Sprintf(routerPrompt, st.LastUserMessage())},
		},
	}, &output)
	if err != nil {
		n.logger.Warn("routing classification failed, defaulting to audio", "error", err)
		return nil
	}

	if RoutingDecision(strings.ToLower(strings.TrimSpace(output.Route))) == DecisionConversation {
		st.Decision = DecisionConversation
	}

	return nil
}

// InjectContext attaches non-memory situational context. Deterministic, no
// external calls.
func (n *Nodes) InjectContext(ctx context.Context, st *State) error {
	parts := []string{
		fmt.Sprintf("It is %s.", time.Now().Format("Monday, 3:04 PM")),
	}
	if n.persona != nil && n.persona.Availability != "" {
		parts = append(parts, n.persona.Availability)
	}

	st.ContextInfo = strings.Join(parts, " ")
	return nil
}

// InjectMemories retrieves the memories most relevant to the current message
// and formats them for the prompt. Retrieval failure leaves the context
// empty; the turn proceeds degraded, never aborted.
func (n *Nodes) InjectMemories(ctx context.Context, st *State) error {
	st.MemoryContext = ""

	if n.memory == nil {
		return nil
	}

	memories := n.memory.RetrieveRelevant(ctx, st.LastUserMessage(), n.memoryConf.RetrieveTopK)
	st.MemoryContext = memory.FormatForInjection(memories)

	return nil
}

// ConversationResponse generates the text reply.
func (n *Nodes) ConversationResponse(ctx context.Context, st *State) error {
	text := n.respond(ctx, st)
	st.AppendMessage(RoleAssistant, text)
	return nil
}

// AudioResponse generates the text reply, then synthesizes speech for it.
// TTS failure degrades to text-only; it never drops the turn.
func (n *Nodes) AudioResponse(ctx context.Context, st *State) error {
	text := n.respond(ctx, st)
	st.AppendMessage(RoleAssistant, text)

	if n.synthesizer == nil {
		return nil
	}

	audio, err := n.synthesizer.Synthesize(ctx, text)
	if err != nil {
		n.logger.Warn("speech synthesis failed, replying text-only", "error", err)
		return nil
	}

	st.ResponseAudio = audio
	st.Messages[len(st.Messages)-1].AudioRef = "tts-" + uuid.NewString()

	return nil
}

// respond runs the text completion for a terminal node. It never fails: any
// error collapses into the canned fallback reply and flags the state so the
// turn is not checkpointed.
func (n *Nodes) respond(ctx context.Context, st *State) string {
	persona := entity.Persona{}
	if n.persona != nil {
		persona = *n.persona
	}

	var buf bytes.Buffer
	if err := chatSystemTmpl.Execute(&buf, chatPromptValues{
		Persona:       persona,
		ContextInfo:   st.ContextInfo,
		MemoryContext: st.MemoryContext,
		Summary:       st.Summary,
	}); err != nil {
		n.logger.Error("failed to render chat prompt", "error", err)
		st.Fallback = true
		return FallbackReply
	}

	model := persona.ModelName
	if model == "" {
		model = n.modelConf.ChatModel
	}

	ctx, cancel := context.WithTimeout(ctx, n.conf.CompletionTimeout)
	defer cancel()

	text, err := n.model.Complete(ctx, provider.CompletionRequest{
		Model:  model,
		System: buf.String(),
		Messages: lo.Map(st.Messages, func(m Message, _ int) provider.ChatMessage {
			return provider.ChatMessage{
				Role:    provider.Role(m.Role),
				Content: m.Content,
			}
		}),
		MaxTokens:   n.conf.MaxResponseTokens,
		Temperature: 0.8,
	})
	if err != nil || text == "" {
		n.logger.Error("response generation failed, using fallback", "error", err)
		st.Fallback = true
		return FallbackReply
	}

	return text
}

// Summarize compacts the oldest messages into the running summary once the
// history crosses the threshold. The compaction is atomic: messages and
// summary change together on success, or not at all.
func (n *Nodes) Summarize(ctx context.Context, st *State) error {
	if len(st.Messages) <= n.conf.SummaryThreshold {
		return nil
	}

	keep := n.conf.SummaryKeep
	if keep < 2 {
		keep = 2
	}
	if keep >= len(st.Messages) {
		return nil
	}

	oldMessages := st.Messages[:len(st.Messages)-keep]

	var buf bytes.Buffer
	if err := conversationSummaryTmpl.Execute(&buf, summaryPromptValues{
		PersonaName: n.personaName(),
		Summary:     st.Summary,
		Messages:    oldMessages,
		MaxWords:    250,
	}); err != nil {
		return errors.Wrapf(err, "failed to render summary prompt")
	}

	var output struct {
		Summary string `json:"summary"`
	}
	if err := n.model.CompleteJSON(ctx, provider.CompletionRequest{
		Model: n.modelConf.RouterModel,
		Messages: []provider.ChatMessage{
			{Role: provider.RoleUser, Content: buf.String()},
		},
	}, &output); err != nil {
		// Leave messages and summary untouched; compaction retries on a
		// later turn once the threshold is still exceeded.
		n.logger.Warn("summarization failed, keeping full history", "error", err)
		return nil
	}

	summary := strings.TrimSpace(output.Summary)
	if summary == "" {
		n.logger.Warn("summarization produced empty summary, keeping full history")
		return nil
	}

	st.Summary = summary
	st.Messages = append([]Message(nil), st.Messages[len(st.Messages)-keep:]...)

	n.logger.Debug("compacted conversation history",
		"session_id", st.SessionID,
		"compacted", len(oldMessages),
		"kept", keep)

	return nil
}

func (n *Nodes) personaName() string {
	if n.persona != nil {
		return n.persona.Name
	}
	return ""
}
