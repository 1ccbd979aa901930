// Package voice creates live calls on the voice-agent provider.
package voice

import (
	"context"
	"fmt"
)

type Medium string

const (
	MediumWebRTC          Medium = "webRtc"
	MediumServerWebSocket Medium = "serverWebSocket"
)

// ParseMedium maps the client's medium name. Anything unrecognised is WebRTC.
func ParseMedium(s string) Medium {
	switch s {
	case "websocket", "serverWebSocket", "server_websocket":
		return MediumServerWebSocket
	default:
		return MediumWebRTC
	}
}

type CallRequest struct {
	SystemPrompt string
	Greeting     string
	Medium       Medium
	// APIKey overrides the provider key for this call when set.
	APIKey string
}

type Call struct {
	CallID  string
	JoinURL string
}

type Provider interface {
	CreateCall(ctx context.Context, req CallRequest) (Call, error)
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("voice provider error: %d - %s", e.Status, e.Body)
}
