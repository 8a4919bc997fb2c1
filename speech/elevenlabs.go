package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/soulweave/rose/config"
	myerrors "github.com/soulweave/rose/errors"
)

// ElevenLabsSynthesizer calls the ElevenLabs text-to-speech HTTP API and
// returns the raw audio bytes.
type ElevenLabsSynthesizer struct {
	endpoint   string
	apiKey     string
	voiceID    string
	model      string
	httpClient *http.Client
}

var _ Synthesizer = (*ElevenLabsSynthesizer)(nil)

func NewElevenLabsSynthesizer(conf *config.SpeechConfig) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{
		endpoint:   conf.ElevenLabsBaseURL,
		apiKey:     conf.ElevenLabsAPIKey,
		voiceID:    conf.VoiceID,
		model:      conf.TTSModel,
		httpClient: &http.Client{},
	}
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.Wrapf(myerrors.ErrInvalidInput, "empty text")
	}

	body := map[string]any{
		"text":     text,
		"model_id": s.model,
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/v1/text-to-speech/%s", s.endpoint, s.voiceID),
		bytes.NewReader(b),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(myerrors.ErrUnavailable, "elevenlabs call failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, errors.Wrapf(myerrors.ErrUnavailable, "elevenlabs status %s", resp.Status)
		}
		return nil, errors.Wrapf(myerrors.ErrInvalidInput, "elevenlabs status %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(myerrors.ErrUnavailable, "failed to read audio response: %v", err)
	}
	if len(audio) == 0 {
		return nil, errors.Wrapf(myerrors.ErrUnavailable, "elevenlabs returned empty audio")
	}

	return audio, nil
}
