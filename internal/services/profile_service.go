package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/datatypes"

	"github.com/yoockh/intervuo/internal/models"
	pgrepo "github.com/yoockh/intervuo/internal/repositories/postgres"
	"github.com/yoockh/intervuo/internal/utils"
)

// ProfileUpdate is a partial update; nil fields are left alone. An empty
// key string removes the stored key.
type ProfileUpdate struct {
	DisplayName    *string         `json:"display_name"`
	UltravoxAPIKey *string         `json:"ultravox_api_key"`
	GroqAPIKey     *string         `json:"groq_api_key"`
	Skills         *[]string       `json:"skills"`
	Preferences    json.RawMessage `json:"preferences"`
}

type ProfileService interface {
	GetMe(ctx context.Context, user models.AuthUser) (*models.Profile, error)
	Update(ctx context.Context, user models.AuthUser, upd ProfileUpdate) (*models.Profile, error)
}

type profileService struct {
	profiles pgrepo.ProfileRepository
}

func NewProfileService(profiles pgrepo.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

// GetMe returns the stored profile, or a blank one built from the token
// claims when the user never saved one.
func (s *profileService) GetMe(ctx context.Context, user models.AuthUser) (*models.Profile, error) {
	const op = "ProfileService.GetMe"

	if user.ID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p, err := s.profiles.GetByUserID(ctx, user.ID)
	if errors.Is(err, utils.ErrNotFound) {
		return blankProfile(user), nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, user models.AuthUser, upd ProfileUpdate) (*models.Profile, error) {
	const op = "ProfileService.Update"

	p, err := s.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}
	if user.Email != "" {
		p.Email = user.Email
	}

	if upd.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.UltravoxAPIKey != nil {
		p.UltravoxAPIKey = strings.TrimSpace(*upd.UltravoxAPIKey)
	}
	if upd.GroqAPIKey != nil {
		p.GroqAPIKey = strings.TrimSpace(*upd.GroqAPIKey)
	}
	if upd.Skills != nil {
		p.Skills = cleanSkills(*upd.Skills)
	}
	if len(upd.Preferences) > 0 && string(upd.Preferences) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(upd.Preferences, &obj); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "preferences must be a JSON object", err)
		}
		p.Preferences = datatypes.JSON(upd.Preferences)
	}

	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to upsert profile", err)
	}
	p.HasUltravoxKey = p.UltravoxAPIKey != ""
	p.HasGroqKey = p.GroqAPIKey != ""
	return p, nil
}

func blankProfile(user models.AuthUser) *models.Profile {
	return &models.Profile{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		Skills:      []string{},
		Preferences: datatypes.JSON("{}"),
	}
}

func cleanSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
