package workflow

import (
	_ "embed"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/soulweave/rose/entity"
)

var (
	//go:embed data/instructions/chat_system.md.tmpl
	chatSystemTmplSrc string
	chatSystemTmpl    = template.Must(template.New("chat_system").Funcs(sprig.TxtFuncMap()).Parse(chatSystemTmplSrc))

	//go:embed data/instructions/conversation_summary.md.tmpl
	conversationSummaryTmplSrc string
	conversationSummaryTmpl    = template.Must(template.New("conversation_summary").Funcs(sprig.TxtFuncMap()).Parse(conversationSummaryTmplSrc))
)

type (
	chatPromptValues struct {
		Persona       entity.Persona
		ContextInfo   string
		MemoryContext string
		Summary       string
	}

	summaryPromptValues struct {
		PersonaName string
		Summary     string
		Messages    []Message
		MaxWords    int
	}
)

const routerPrompt = `Classify how the assistant's next reply should be delivered.

- "audio": the reply should be spoken aloud. This is the default for a
  voice conversation; pick it when in doubt.
- "conversation": the user explicitly asked for text, is pasting or asking
  about written material, or the reply needs to be read rather than heard.

Respond with a JSON object: {"route": "audio" | "conversation"}

User message: %s`
