package config

import "time"

type WorkflowConfig struct {
	// SummaryThreshold is the message count past which the summarization
	// node compacts older messages into the running summary.
	SummaryThreshold int

	// SummaryKeep is how many of the most recent messages survive
	// compaction verbatim.
	SummaryKeep int

	// TurnTimeout bounds one full graph invocation. On expiry the turn is
	// abandoned and no checkpoint is written.
	TurnTimeout time.Duration

	// CompletionTimeout bounds a single text-completion call.
	CompletionTimeout time.Duration

	MaxResponseTokens int64
}

func NewWorkflowConfig() *WorkflowConfig {
	config := &WorkflowConfig{
		SummaryThreshold:  20,
		SummaryKeep:       8,
		TurnTimeout:       45 * time.Second,
		CompletionTimeout: 30 * time.Second,
		MaxResponseTokens: 1024,
	}
	return config
}
