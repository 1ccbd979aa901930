package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Level string

const (
	LevelInternship Level = "Internship"
	LevelEntry      Level = "Entry-Level"
	LevelMid        Level = "Mid-Level"
	LevelSenior     Level = "Senior-Level"
)

func (l Level) Valid() bool {
	switch l {
	case LevelInternship, LevelEntry, LevelMid, LevelSenior:
		return true
	}
	return false
}

type InterviewType string

const (
	TypeTechnical    InterviewType = "technical"
	TypeBehavioral   InterviewType = "behavioral"
	TypeSystemDesign InterviewType = "system-design"
	TypeCoding       InterviewType = "coding"
)

func (t InterviewType) Valid() bool {
	switch t {
	case TypeTechnical, TypeBehavioral, TypeSystemDesign, TypeCoding:
		return true
	}
	return false
}

// InterviewConfig is what the candidate submits before a call is created.
type InterviewConfig struct {
	Company           string        `bson:"company" json:"company"`
	Role              string        `bson:"role" json:"role"`
	Level             Level         `bson:"level" json:"level"`
	InterviewType     InterviewType `bson:"interview_type" json:"interviewType"`
	PreferredLanguage string        `bson:"preferred_language,omitempty" json:"preferredLanguage,omitempty"`
}

// Normalize trims every free-text field in place.
func (c *InterviewConfig) Normalize() {
	c.Company = strings.TrimSpace(c.Company)
	c.Role = strings.TrimSpace(c.Role)
	c.Level = Level(strings.TrimSpace(string(c.Level)))
	c.InterviewType = InterviewType(strings.ToLower(strings.TrimSpace(string(c.InterviewType))))
	c.PreferredLanguage = strings.TrimSpace(c.PreferredLanguage)
}

// Validate returns a short human readable reason, or "" when the config is usable.
func (c InterviewConfig) Validate() string {
	switch {
	case c.Company == "" || c.Role == "" || c.Level == "" || c.InterviewType == "":
		return "company, role, level, and interviewType are required"
	case !c.Level.Valid():
		return "unknown level: " + string(c.Level)
	case !c.InterviewType.Valid():
		return "unknown interviewType: " + string(c.InterviewType)
	}
	return ""
}

type InterviewStatus string

const (
	StatusScheduling     InterviewStatus = "scheduling"
	StatusReady          InterviewStatus = "ready"
	StatusFailed         InterviewStatus = "failed"
	StatusAnalyzing      InterviewStatus = "analyzing"
	StatusCompleted      InterviewStatus = "completed"
	StatusAnalysisFailed InterviewStatus = "analysis_failed"
)

// Interview is the persisted record of one mock interview. The embedded
// analysis is flattened into the JSON form so results read as
// {summary, analysis, scores, company, role, ..., transcript, createdAt}.
type Interview struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	InterviewID string             `bson:"interview_id" json:"id"`

	UserID    string `bson:"user_id" json:"userId"`
	UserEmail string `bson:"user_email,omitempty" json:"userEmail,omitempty"`
	UserName  string `bson:"user_name,omitempty" json:"userName,omitempty"`

	InterviewConfig        `bson:",inline"`
	NotificationPreference string `bson:"notification_preference,omitempty" json:"notificationPreference,omitempty"`

	Status  InterviewStatus `bson:"status" json:"status"`
	CallID  string          `bson:"call_id,omitempty" json:"callId,omitempty"`
	JoinURL string          `bson:"join_url,omitempty" json:"joinUrl,omitempty"`
	Error   string          `bson:"error,omitempty" json:"error,omitempty"`

	Transcript      []TranscriptEntry `bson:"transcript,omitempty" json:"transcript,omitempty"`
	*AnalysisResult `bson:"analysis,omitempty"`
	ArchivePath     string `bson:"archive_path,omitempty" json:"archivePath,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// SessionHandle is the one-time credential for joining a created call.
type SessionHandle struct {
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
}
