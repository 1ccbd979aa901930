// Package llm wraps the chat-completion backends used for transcript
// analysis.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrEmptyResponse is returned when the backend answered without content.
var ErrEmptyResponse = errors.New("llm returned no content")

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSON asks the backend for a single JSON object.
	JSON bool
}

type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}
