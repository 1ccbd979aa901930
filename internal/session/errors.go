package session

import "errors"

var (
	ErrInvalidHandle       = errors.New("session: session handle needs a call id and join url")
	ErrAlreadyJoined       = errors.New("session: controller already has a session")
	ErrHandleConsumed      = errors.New("session: session handle already used")
	ErrConnectionFailure   = errors.New("session: connection failed")
	ErrNoActiveSession     = errors.New("session: no active session")
	ErrAlreadyAnalyzing    = errors.New("session: already analyzing")
	ErrNoSessionIdentifier = errors.New("session: no session identifier")
	ErrAnalysisFailed      = errors.New("session: analysis failed")
	ErrClosed              = errors.New("session: controller closed")
	ErrTextUnsupported     = errors.New("session: transport does not accept text input")
)
