package ai

import (
	"context"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Client is the interface for language-generation providers. Implementations
// return the provider's raw reply text; decoding into the turn contract is the
// caller's concern (see Parse).
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
