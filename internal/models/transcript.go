package models

import (
	"encoding/json"
	"strings"
)

type Speaker string

const (
	SpeakerAgent     Speaker = "agent"
	SpeakerCandidate Speaker = "candidate"
)

// ParseSpeaker maps transport and client speaker names onto Speaker.
// Voice providers call the human side "user".
func ParseSpeaker(s string) (Speaker, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "assistant", "interviewer":
		return SpeakerAgent, true
	case "user", "candidate":
		return SpeakerCandidate, true
	}
	return "", false
}

func (s Speaker) Valid() bool { return s == SpeakerAgent || s == SpeakerCandidate }

// UnmarshalJSON accepts every alias ParseSpeaker knows. Unknown names are
// kept verbatim so callers can reject them with Valid.
func (s *Speaker) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if sp, ok := ParseSpeaker(raw); ok {
		*s = sp
		return nil
	}
	*s = Speaker(raw)
	return nil
}

// Label is the name used for the speaker in analysis prompts.
func (s Speaker) Label() string {
	if s == SpeakerAgent {
		return "Interviewer"
	}
	return "Candidate"
}

type TranscriptEntry struct {
	Speaker Speaker `bson:"speaker" json:"speaker"`
	Text    string  `bson:"text" json:"text"`
	IsFinal bool    `bson:"is_final" json:"isFinal"`
}

func (e TranscriptEntry) Blank() bool { return strings.TrimSpace(e.Text) == "" }

// FinalEntries returns the finalized, non-blank entries in order.
func FinalEntries(entries []TranscriptEntry) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsFinal && !e.Blank() {
			out = append(out, e)
		}
	}
	return out
}
