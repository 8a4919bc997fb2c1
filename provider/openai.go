package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/pkg/errors"
	"github.com/soulweave/rose/config"
	myerrors "github.com/soulweave/rose/errors"
	"github.com/soulweave/rose/internal/stringutils"
)

type (
	// OpenAIChatService serves chat completions from any OpenAI-compatible
	// endpoint. Groq is the default target; the base URL decides.
	OpenAIChatService struct {
		api          openai.Client
		defaultModel string
	}

	// OpenAIEmbedder serves embeddings. Kept on a separate client because
	// Groq has no embedding models and the OpenAI endpoint is used instead.
	OpenAIEmbedder struct {
		api   openai.Client
		model string
	}
)

var (
	_ ChatService = (*OpenAIChatService)(nil)
	_ Embedder    = (*OpenAIEmbedder)(nil)
)

func NewChatService(conf *config.ModelConfig) *OpenAIChatService {
	opts := []option.RequestOption{
		option.WithAPIKey(conf.GroqAPIKey),
	}
	if conf.GroqBaseURL != "" {
		opts = append(opts, option.WithBaseURL(conf.GroqBaseURL))
	}

	return &OpenAIChatService{
		api:          openai.NewClient(opts...),
		defaultModel: conf.ChatModel,
	}
}

func NewEmbedder(conf *config.ModelConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(conf.OpenAIAPIKey),
	}
	if conf.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(conf.OpenAIBaseURL))
	}

	return &OpenAIEmbedder{
		api:   openai.NewClient(opts...),
		model: conf.EmbeddingModel,
	}
}

func (s *OpenAIChatService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params, err := s.buildParams(req)
	if err != nil {
		return "", err
	}

	resp, err := s.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", ClassifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrapf(myerrors.ErrUnavailable, "completion returned no choices")
	}

	return strings.TrimSpace(stringutils.SanitizeUnicodeString(resp.Choices[0].Message.Content)), nil
}

func (s *OpenAIChatService) CompleteJSON(ctx context.Context, req CompletionRequest, out any) error {
	params, err := s.buildParams(req)
	if err != nil {
		return err
	}
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	resp, err := s.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return ClassifyError(err)
	}
	if len(resp.Choices) == 0 {
		return errors.Wrapf(myerrors.ErrUnavailable, "completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return errors.Wrapf(err, "failed to unmarshal structured completion: %s", content)
	}

	return nil
}

func (s *OpenAIChatService) buildParams(req CompletionRequest) (openai.ChatCompletionNewParams, error) {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	if model == "" {
		return openai.ChatCompletionNewParams{}, errors.Wrapf(myerrors.ErrInvalidConfig, "no model configured")
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	return params, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, ClassifyError(err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}

	return embeddings, nil
}

// ClassifyError folds provider errors into the transient/permanent taxonomy.
// Timeouts and 5xx/429 are retryable; other HTTP errors are not.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return errors.Wrapf(myerrors.ErrUnavailable, "provider error: %v", apierr)
		}
		return errors.Wrapf(myerrors.ErrInvalidInput, "provider error: %v", apierr)
	}

	// Network-level failures (connection refused, context deadline).
	return errors.Wrapf(myerrors.ErrUnavailable, "provider call failed: %v", err)
}
