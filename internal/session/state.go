package session

import (
	"strings"

	"github.com/yoockh/intervuo/internal/transport"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// Substate tracks turn taking while Active. Display only.
type Substate int

const (
	SubstateNone Substate = iota
	SubstateIdle
	SubstateListening
	SubstateThinking
	SubstateSpeaking
)

func (s Substate) String() string {
	switch s {
	case SubstateIdle:
		return "idle"
	case SubstateListening:
		return "listening"
	case SubstateThinking:
		return "thinking"
	case SubstateSpeaking:
		return "speaking"
	default:
		return ""
	}
}

// Status is a validated transport status.
type Status int

const (
	StatusUnknown Status = iota
	StatusConnecting
	StatusIdle
	StatusListening
	StatusThinking
	StatusSpeaking
	StatusDisconnecting
	StatusDisconnected
)

var statusByName = map[string]Status{
	transport.StatusConnecting:    StatusConnecting,
	transport.StatusIdle:          StatusIdle,
	transport.StatusListening:     StatusListening,
	transport.StatusThinking:      StatusThinking,
	transport.StatusSpeaking:      StatusSpeaking,
	transport.StatusDisconnecting: StatusDisconnecting,
	transport.StatusDisconnected:  StatusDisconnected,
}

// ParseStatus maps a raw transport status onto Status.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusByName[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// Active reports whether the status means the call is live.
func (s Status) Active() bool {
	return s >= StatusIdle && s <= StatusSpeaking
}

func (s Status) substate() Substate {
	switch s {
	case StatusIdle:
		return SubstateIdle
	case StatusListening:
		return SubstateListening
	case StatusThinking:
		return SubstateThinking
	case StatusSpeaking:
		return SubstateSpeaking
	}
	return SubstateNone
}
