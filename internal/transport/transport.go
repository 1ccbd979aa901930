// Package transport defines the minimal contract the interview controller
// needs from a real-time voice session client.
package transport

import "context"

// Raw status values reported by voice transports.
const (
	StatusDisconnected  = "disconnected"
	StatusConnecting    = "connecting"
	StatusIdle          = "idle"
	StatusListening     = "listening"
	StatusThinking      = "thinking"
	StatusSpeaking      = "speaking"
	StatusDisconnecting = "disconnecting"
)

// Transcript is one utterance as reported by the transport. Nothing in it
// has been validated.
type Transcript struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
	Medium  string `json:"medium,omitempty"`
}

// Transport is a live call client. Listeners may be invoked from any
// goroutine, and OnTranscripts always receives the full current list.
type Transport interface {
	Join(ctx context.Context, joinURL string) error
	Leave() error
	OnStatus(fn func(status string))
	OnTranscripts(fn func(transcripts []Transcript))
	Status() string
	Transcripts() []Transcript
}

// TextSender is implemented by transports that accept typed candidate input.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// Factory builds a fresh Transport for every join attempt.
type Factory func() (Transport, error)
