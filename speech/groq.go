package speech

import (
	"bytes"
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/soulweave/rose/config"
	myerrors "github.com/soulweave/rose/errors"
	"github.com/soulweave/rose/internal/stringutils"
	"github.com/soulweave/rose/provider"
)

// GroqTranscriber runs Whisper on Groq's OpenAI-compatible audio endpoint.
type GroqTranscriber struct {
	api   openai.Client
	model string
}

var _ Transcriber = (*GroqTranscriber)(nil)

func NewGroqTranscriber(modelConf *config.ModelConfig, speechConf *config.SpeechConfig) *GroqTranscriber {
	opts := []option.RequestOption{
		option.WithAPIKey(modelConf.GroqAPIKey),
	}
	if modelConf.GroqBaseURL != "" {
		opts = append(opts, option.WithBaseURL(modelConf.GroqBaseURL))
	}

	return &GroqTranscriber{
		api:   openai.NewClient(opts...),
		model: speechConf.STTModel,
	}
}

func (t *GroqTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", errors.Wrapf(myerrors.ErrInvalidInput, "empty audio")
	}

	contentType, ok := audioContentTypes[strings.ToLower(format)]
	if !ok {
		return "", errors.Wrapf(myerrors.ErrInvalidInput, "unsupported audio format %q", format)
	}

	resp, err := t.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(t.model),
		File:  openai.File(bytes.NewReader(audio), "audio."+format, contentType),
	})
	if err != nil {
		return "", provider.ClassifyError(err)
	}

	return strings.TrimSpace(stringutils.SanitizeUnicodeString(resp.Text)), nil
}

var audioContentTypes = map[string]string{
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"webm": "audio/webm",
	"flac": "audio/flac",
}
