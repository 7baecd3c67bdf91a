package chat

// Package chat defines the completion client consumed by the session
// controller and its OpenAI-backed implementation.

import (
	"context"

	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

// Turn is one {role, content} pair of the outbound request history. Ids and
// timestamps are deliberately absent; they never go over the wire.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	TurnRoleSystem    = "system"
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// RequestContext is the settings snapshot bound to one outstanding request.
// It is ephemeral and never persisted.
type RequestContext struct {
	Model        string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
}

func RequestContextFromSettings(s *settings.Settings) RequestContext {
	return RequestContext{
		Model:        s.Chat.Model,
		Temperature:  s.Chat.Temperature,
		MaxTokens:    s.Chat.MaxTokens,
		SystemPrompt: s.Chat.SystemPrompt,
	}
}

// Client sends one completion request and returns the assistant text or a
// *CompletionError. The request runs to completion; there is no cancellation
// primitive beyond the passed context.
type Client interface {
	Complete(ctx context.Context, history []Turn, rc RequestContext) (string, error)
}
