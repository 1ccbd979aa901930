package session

import "github.com/yoockh/intervuo/internal/models"

// Reason says how a session ended.
type Reason string

const (
	ReasonEnded                Reason = "ended"
	ReasonUnexpectedDisconnect Reason = "unexpected_disconnect"
	ReasonConnectionFailure    Reason = "connection_failure"
)

// Result says what happened to the transcript after the session ended.
type Result string

const (
	ResultAnalyzed            Result = "analyzed"
	ResultEmptyTranscript     Result = "empty_transcript"
	ResultAnalysisFailed      Result = "analysis_failed"
	ResultNoSessionIdentifier Result = "no_session_identifier"
	ResultConnectionFailure   Result = "connection_failure"
)

// Outcome is the terminal report for one session. Transcript holds the
// finalized entries even when analysis failed.
type Outcome struct {
	Reason     Reason
	Result     Result
	CallID     string
	SessionID  string
	Transcript []models.TranscriptEntry
	Analysis   *models.AnalysisResult
	Err        error
}
