package rose

import (
	"log/slog"

	"github.com/mokiat/gog"
	"github.com/soulweave/rose/checkpoint"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/entity"
	"github.com/soulweave/rose/memory"
	"github.com/soulweave/rose/provider"
	"github.com/soulweave/rose/speech"
)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithPersona(persona entity.Persona) Option {
	return func(r *Runtime) {
		r.persona = &persona
	}
}

func WithGroqAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.modelConfig.GroqAPIKey = apiKey
	}
}

func WithOpenAIAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.modelConfig.OpenAIAPIKey = apiKey
	}
}

func WithElevenLabsAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.speechConfig.ElevenLabsAPIKey = apiKey
	}
}

func WithModelConfig(conf *config.ModelConfig) Option {
	return func(r *Runtime) {
		r.modelConfig = conf
	}
}

func WithMemoryConfig(conf *config.MemoryConfig) Option {
	return func(r *Runtime) {
		r.memoryConfig = conf
	}
}

func WithSpeechConfig(conf *config.SpeechConfig) Option {
	return func(r *Runtime) {
		r.speechConfig = conf
	}
}

func WithWorkflowConfig(conf *config.WorkflowConfig) Option {
	return func(r *Runtime) {
		r.workflowConfig = conf
	}
}

func WithLogConfig(conf *config.LogConfig) Option {
	return func(r *Runtime) {
		r.logConfig = conf
	}
}

func WithChatService(model provider.ChatService) Option {
	return func(r *Runtime) {
		r.model = model
	}
}

func WithEmbedder(embedder provider.Embedder) Option {
	return func(r *Runtime) {
		r.embedder = embedder
	}
}

func WithMemoryStore(store memory.Store) Option {
	return func(r *Runtime) {
		r.memoryStore = store
	}
}

func WithCheckpointStore(store checkpoint.Store) Option {
	return func(r *Runtime) {
		r.checkpoints = store
	}
}

func WithTranscriber(transcriber speech.Transcriber) Option {
	return func(r *Runtime) {
		r.transcriber = transcriber
	}
}

func WithSynthesizer(synthesizer speech.Synthesizer) Option {
	return func(r *Runtime) {
		r.synthesizer = synthesizer
	}
}

// PersonaFromConfig converts a loaded persona file into the runtime entity.
func PersonaFromConfig(conf config.PersonaConfig) entity.Persona {
	return entity.Persona{
		Name:         conf.Name,
		System:       conf.System,
		Bio:          conf.Bio,
		Lore:         conf.Lore,
		Availability: conf.Availability,
		MessageExamples: gog.Map(conf.MessageExamples, func(group config.PersonaMessageExample) []entity.MessageExample {
			return gog.Map(group.Messages, func(m config.PersonaMessage) entity.MessageExample {
				return entity.MessageExample{
					User: m.Name,
					Text: m.Text,
				}
			})
		}),
		ModelName: conf.Model,
		VoiceID:   conf.VoiceID,
	}
}
