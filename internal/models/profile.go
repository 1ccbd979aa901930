package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Profile holds per-user settings. Provider keys are write-only from the API.
type Profile struct {
	UserID      string `gorm:"column:user_id;type:text;primaryKey" json:"user_id"`
	Email       string `gorm:"column:email;type:text" json:"email"`
	DisplayName string `gorm:"column:display_name;type:text" json:"display_name"`

	UltravoxAPIKey string `gorm:"column:ultravox_api_key;type:text" json:"-"`
	GroqAPIKey     string `gorm:"column:groq_api_key;type:text" json:"-"`

	Skills      pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	HasUltravoxKey bool `gorm:"-" json:"has_ultravox_key"`
	HasGroqKey     bool `gorm:"-" json:"has_groq_key"`
}

func (Profile) TableName() string { return "profiles" }
