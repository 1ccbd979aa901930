package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/intervuo/internal/cache"
	"github.com/yoockh/intervuo/internal/models"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	"github.com/yoockh/intervuo/internal/storage"
	"github.com/yoockh/intervuo/internal/utils"
)

const (
	historyLimit     = 50
	archiveURLExpiry = 15 * time.Minute
)

// InterviewService serves a user's interview history and results.
type InterviewService interface {
	List(ctx context.Context, userID string) ([]models.Interview, error)
	Get(ctx context.Context, userID, interviewID string) (*models.Interview, error)
	ArchiveURL(ctx context.Context, userID, interviewID string) (string, error)
}

type interviewService struct {
	interviews mongorepo.InterviewRepository
	cache      cache.Cache
	ttl        time.Duration
	signer     storage.Signer
}

func NewInterviewService(interviews mongorepo.InterviewRepository, c cache.Cache, ttl time.Duration, signer storage.Signer) InterviewService {
	return &interviewService{interviews: interviews, cache: c, ttl: ttl, signer: signer}
}

func (s *interviewService) List(ctx context.Context, userID string) ([]models.Interview, error) {
	const op = "InterviewService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	key := cache.HistoryKey(userID)
	if s.cache != nil {
		var cached []models.Interview
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	out, err := s.interviews.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	if s.cache != nil && s.ttl > 0 {
		_ = s.cache.SetJSON(ctx, key, out, s.ttl)
	}
	return out, nil
}

func (s *interviewService) Get(ctx context.Context, userID, interviewID string) (*models.Interview, error) {
	const op = "InterviewService.Get"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview id is required", nil)
	}

	iv, err := s.interviews.Get(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}
	if iv.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "interview belongs to another user", nil)
	}
	return iv, nil
}

func (s *interviewService) ArchiveURL(ctx context.Context, userID, interviewID string) (string, error) {
	const op = "InterviewService.ArchiveURL"

	iv, err := s.Get(ctx, userID, interviewID)
	if err != nil {
		return "", err
	}
	if s.signer == nil {
		return "", utils.E(utils.CodeUnavailable, op, "transcript archive is disabled", nil)
	}
	if iv.ArchivePath == "" {
		return "", utils.E(utils.CodeNotFound, op, "transcript not archived yet", nil)
	}

	url, err := s.signer.SignedGetURL(ctx, storage.TranscriptObject(iv.UserID, iv.InterviewID), archiveURLExpiry)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to sign archive url", err)
	}
	return url, nil
}
