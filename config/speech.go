package config

import "time"

type SpeechConfig struct {
	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL string `env:"ELEVENLABS_BASE_URL"`

	// VoiceID selects the ElevenLabs voice used for synthesis.
	VoiceID  string `env:"ELEVENLABS_VOICE_ID"`
	TTSModel string `env:"ELEVENLABS_TTS_MODEL"`

	// STTModel names the Whisper model served by Groq.
	STTModel string `env:"ROSE_STT_MODEL"`

	STTTimeout time.Duration
	TTSTimeout time.Duration

	// MaxAttempts bounds retries per call, including the first attempt.
	MaxAttempts int

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit; BreakerCooldown is how long it stays open before half-open.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func NewSpeechConfig() *SpeechConfig {
	config := &SpeechConfig{
		ElevenLabsBaseURL: "https://api.elevenlabs.io",
		VoiceID:           "EXAVITQu4vr4xnSDxMaL",
		TTSModel:          "eleven_turbo_v2_5",
		STTModel:          "whisper-large-v3",
		STTTimeout:        60 * time.Second,
		TTSTimeout:        10 * time.Second,
		MaxAttempts:       3,
		BreakerThreshold:  5,
		BreakerCooldown:   30 * time.Second,
	}
	if err := resolveConfig(config); err != nil {
		return config
	}
	return config
}
