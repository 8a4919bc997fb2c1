package entity

type Persona struct {
	Name   string   `json:"name"`
	System string   `json:"system,omitempty"`
	Bio    []string `json:"bio,omitempty"`
	Lore   []string `json:"lore,omitempty"`

	// Availability is a short line the context-injection node attaches to
	// every turn, e.g. "available for a healing session now".
	Availability string `json:"availability,omitempty"`

	MessageExamples [][]MessageExample `json:"messageExamples,omitempty"`

	ModelName string `json:"model,omitempty"`
	VoiceID   string `json:"voiceId,omitempty"`
}

type MessageExample struct {
	User string `json:"user,omitempty"`
	Text string `json:"text,omitempty"`
}
