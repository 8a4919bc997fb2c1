package config

type ModelConfig struct {
	// GroqAPIKey authenticates against the Groq OpenAI-compatible API, which
	// serves both chat completions and Whisper transcription.
	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqBaseURL string `env:"GROQ_BASE_URL"`

	// OpenAIAPIKey is used for the embeddings endpoint only; Groq does not
	// serve embedding models.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// ChatModel generates assistant replies.
	ChatModel string `env:"ROSE_CHAT_MODEL"`

	// RouterModel classifies the routing decision and drives memory
	// extraction/summarization. A small fast model is enough.
	RouterModel string `env:"ROSE_ROUTER_MODEL"`

	EmbeddingModel string `env:"ROSE_EMBEDDING_MODEL"`
}

func NewModelConfig() *ModelConfig {
	config := &ModelConfig{
		GroqBaseURL:    "https://api.groq.com/openai/v1",
		ChatModel:      "llama-3.3-70b-versatile",
		RouterModel:    "llama-3.1-8b-instant",
		EmbeddingModel: "text-embedding-3-small",
	}
	if err := resolveConfig(config); err != nil {
		return config
	}
	return config
}
