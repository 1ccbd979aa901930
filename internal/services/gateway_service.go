package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yoockh/intervuo/internal/cache"
	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/prompt"
	"github.com/yoockh/intervuo/internal/providers/voice"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	pgrepo "github.com/yoockh/intervuo/internal/repositories/postgres"
	"github.com/yoockh/intervuo/internal/utils"
)

type StartRequest struct {
	Config                 models.InterviewConfig
	Medium                 voice.Medium
	NotificationPreference string
}

type StartResult struct {
	InterviewID string `json:"interviewId"`
	CallID      string `json:"callId"`
	JoinURL     string `json:"joinUrl"`
}

func (r StartResult) Handle() models.SessionHandle {
	return models.SessionHandle{CallID: r.CallID, JoinURL: r.JoinURL}
}

// GatewayService records a new interview and creates its live call.
type GatewayService interface {
	Start(ctx context.Context, user models.AuthUser, req StartRequest) (*StartResult, error)
}

type gatewayService struct {
	interviews mongorepo.InterviewRepository
	profiles   pgrepo.ProfileRepository
	voice      voice.Provider
	cache      cache.Cache
}

func NewGatewayService(interviews mongorepo.InterviewRepository, profiles pgrepo.ProfileRepository, vp voice.Provider, c cache.Cache) GatewayService {
	return &gatewayService{interviews: interviews, profiles: profiles, voice: vp, cache: c}
}

func (s *gatewayService) Start(ctx context.Context, user models.AuthUser, req StartRequest) (*StartResult, error) {
	const op = "GatewayService.Start"

	if user.ID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "user is required", nil)
	}
	req.Config.Normalize()
	if msg := req.Config.Validate(); msg != "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, msg, nil)
	}

	iv := &models.Interview{
		InterviewID:            uuid.NewString(),
		UserID:                 user.ID,
		UserEmail:              user.Email,
		UserName:               user.DisplayName(),
		InterviewConfig:        req.Config,
		NotificationPreference: strings.TrimSpace(req.NotificationPreference),
		Status:                 models.StatusScheduling,
	}
	if err := s.interviews.Create(ctx, iv); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	s.invalidateHistory(ctx, user.ID)

	var skills []string
	var userKey string
	if s.profiles != nil {
		p, err := s.profiles.GetByUserID(ctx, user.ID)
		switch {
		case err == nil:
			skills = p.Skills
			userKey = p.UltravoxAPIKey
		case !errors.Is(err, utils.ErrNotFound):
			return nil, s.fail(ctx, iv.InterviewID, utils.E(utils.CodeInternal, op, "failed to load profile", err))
		}
	}

	call, err := s.voice.CreateCall(ctx, voice.CallRequest{
		SystemPrompt: prompt.SystemPrompt(req.Config, skills),
		Greeting:     prompt.Greeting(req.Config),
		Medium:       req.Medium,
		APIKey:       userKey,
	})
	if err != nil {
		return nil, s.fail(ctx, iv.InterviewID, utils.E(utils.CodeUpstream, op, "Failed to start interview", err))
	}

	if err := s.interviews.MarkReady(ctx, iv.InterviewID, call.CallID, call.JoinURL); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to record call", err)
	}
	s.invalidateHistory(ctx, user.ID)

	return &StartResult{InterviewID: iv.InterviewID, CallID: call.CallID, JoinURL: call.JoinURL}, nil
}

// fail stores the reason on the record and returns cause.
func (s *gatewayService) fail(ctx context.Context, interviewID string, cause error) error {
	reason := cause.Error()
	var ae *utils.AppError
	if errors.As(cause, &ae) && ae.Err != nil {
		reason = ae.Err.Error()
	}
	_ = s.interviews.MarkFailed(ctx, interviewID, reason)
	return cause
}

func (s *gatewayService) invalidateHistory(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cache.HistoryKey(userID))
	}
}
