package ai

import "context"

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// ChatMessage is one turn of the user-visible conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Pinned messages lead the conversation and are never trimmed.
	Pinned bool `json:"-"`
}

// Provider is the interface that any AI backend must implement.
// This abstraction allows swapping between Gemini, OpenAI-compatible APIs and
// Ollama without changing any business logic in Client.
type Provider interface {
	// Complete sends a list of messages and returns the assistant's response text.
	Complete(ctx context.Context, messages []Message) (string, error)
}
