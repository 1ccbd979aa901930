package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/utils"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

// Migrate creates or updates the profiles table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Profile{})
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.HasUltravoxKey = p.UltravoxAPIKey != ""
	p.HasGroqKey = p.GroqAPIKey != ""
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "display_name", "ultravox_api_key", "groq_api_key", "skills", "preferences", "updated_at",
			}),
		}).
		Create(p).Error
}
