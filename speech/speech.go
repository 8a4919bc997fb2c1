package speech

import "context"

type (
	// Transcriber converts audio into text.
	Transcriber interface {
		Transcribe(ctx context.Context, audio []byte, format string) (string, error)
	}

	// Synthesizer converts text into audio.
	Synthesizer interface {
		Synthesize(ctx context.Context, text string) ([]byte, error)
	}
)
