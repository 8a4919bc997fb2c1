package memory

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/provider"
)

const extractPromptTemplate = `Decide whether the user's message contains a durable fact worth remembering
across sessions, and if so state it as one short third-person sentence.

Worth remembering: personal facts (name, family, pets, location, job), life
events (losses, milestones), preferences, goals, relationships, health.
Not worth remembering: greetings, small talk, questions, transient feelings
about the current conversation.

Examples:
"My dog died yesterday" → {"worth_remembering": true, "fact": "The user's dog died recently"}
"Hello, how are you?" → {"worth_remembering": false, "fact": ""}
"I work as a nurse in Lisbon" → {"worth_remembering": true, "fact": "The user works as a nurse in Lisbon"}

Respond with a JSON object: {"worth_remembering": bool, "fact": string}

Message: {{.Input}}`

type extractTemplateData struct {
	Input string
}

var extractTmpl *template.Template

func init() {
	var err error
	extractTmpl, err = template.New("extractPrompt").Parse(extractPromptTemplate)
	if err != nil {
		panic(fmt.Sprintf("failed to parse extract template: %v", err))
	}
}

type (
	// Manager mediates between raw conversation content and the vector
	// store: extraction, write-time dedup, retrieval, prompt formatting.
	Manager struct {
		logger   *slog.Logger
		model    provider.ChatService
		embedder provider.Embedder
		store    Store
		conf     *config.MemoryConfig

		// extractModel names the model used for extraction; fact
		// classification is small enough for a fast router-class model.
		extractModel string

		// Serializes the dedupe check-then-write sequence so concurrent
		// extraction of the same fact cannot race into two points.
		writeMu sync.Mutex
	}
)

func NewManager(logger *slog.Logger, model provider.ChatService, embedder provider.Embedder, store Store, conf *config.MemoryConfig, extractModel string) *Manager {
	return &Manager{
		logger:       logger,
		model:        model,
		embedder:     embedder,
		store:        store,
		conf:         conf,
		extractModel: extractModel,
	}
}

// ExtractAndStore asks the model whether the message carries a retainable
// fact and stores it unless a near-duplicate already exists. Returns the
// stored memory, or nil when nothing was stored (nothing retainable, or a
// duplicate above the threshold was found). Transient failures are logged
// and swallowed; a turn never fails because memory extraction did.
func (m *Manager) ExtractAndStore(ctx context.Context, sessionID string, message string) (*Memory, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil
	}

	var promptBuffer bytes.Buffer
	if err := extractTmpl.Execute(&promptBuffer, extractTemplateData{Input: message}); err != nil {
		return nil, err
	}

	var output struct {
		WorthRemembering bool   `json:"worth_remembering"`
		Fact             string `json:"fact"`
	}
	if err := m.model.CompleteJSON(ctx, provider.CompletionRequest{
		Model: m.extractModel,
		Messages: []provider.ChatMessage{
			{Role: provider.RoleUser, Content: promptBuffer.String()},
		},
	}, &output); err != nil {
		m.logger.Warn("memory extraction failed, dropping candidate", "error", err)
		return nil, nil
	}

	fact := strings.TrimSpace(output.Fact)
	if !output.WorthRemembering || fact == "" {
		return nil, nil
	}

	embeddings, err := m.embedder.Embed(ctx, fact)
	if err != nil || len(embeddings) == 0 {
		m.logger.Warn("failed to embed memory candidate, dropping", "error", err)
		return nil, nil
	}

	mem := &Memory{
		ID:        uuid.NewString(),
		Text:      fact,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
		Embedding: embeddings[0],
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	existing, err := m.store.Search(ctx, mem.Embedding, 1)
	if err != nil {
		m.logger.Warn("memory dedup check failed, dropping candidate", "error", err)
		return nil, nil
	}
	if len(existing) > 0 && existing[0].Score >= m.conf.DedupThreshold {
		m.logger.Debug("skipping near-duplicate memory",
			"fact", fact,
			"existing", existing[0].Memory.Text,
			"score", existing[0].Score)
		return nil, nil
	}

	if err := m.store.Upsert(ctx, mem); err != nil {
		m.logger.Warn("failed to store memory", "error", err)
		return nil, nil
	}

	m.logger.Info("stored memory", "fact", fact, "session_id", sessionID)
	return mem, nil
}

// RetrieveRelevant embeds the query and returns up to topK memories by
// descending similarity. Store unavailability yields an empty slice, never
// an error: retrieval is a best-effort enrichment.
func (m *Manager) RetrieveRelevant(ctx context.Context, query string, topK int) []Memory {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return nil
	}

	embeddings, err := m.embedder.Embed(ctx, query)
	if err != nil || len(embeddings) == 0 {
		m.logger.Warn("failed to embed memory query", "error", err)
		return nil
	}

	scored, err := m.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		m.logger.Warn("memory search failed", "error", err)
		return nil
	}

	return lo.Map(scored, func(s ScoredMemory, _ int) Memory {
		return *s.Memory
	})
}

// FormatForInjection renders memories into a prompt-ready block. Empty input
// yields an empty string.
func FormatForInjection(memories []Memory) string {
	if len(memories) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Things you remember about this person from past conversations:\n")
	for _, mem := range memories {
		sb.WriteString("- ")
		sb.WriteString(mem.Text)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
