package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/cache"
	"github.com/yoockh/intervuo/internal/models"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	pgrepo "github.com/yoockh/intervuo/internal/repositories/postgres"
	"github.com/yoockh/intervuo/internal/utils"
)

const (
	defaultAnalysisTimeout = 60 * time.Second
	claimTTL               = 10 * time.Minute
)

type Analyzer interface {
	Analyze(ctx context.Context, transcript []models.TranscriptEntry, cfg models.InterviewConfig, sessionID string) (*models.AnalysisResult, error)
}

// AnalyzerFor returns an Analyzer that bills apiKey, or the server key when
// apiKey is blank. Analyzers implementing io.Closer are closed after use.
type AnalyzerFor func(ctx context.Context, apiKey string) (Analyzer, error)

// ArchiveQueue schedules the post-analysis archive job.
type ArchiveQueue interface {
	Enqueue(ctx context.Context, interviewID string) error
}

type AnalyzeRequest struct {
	Transcript       []models.TranscriptEntry
	InterviewDetails models.InterviewConfig
	InterviewID      string
}

type AnalysisService interface {
	Analyze(ctx context.Context, user models.AuthUser, req AnalyzeRequest) (*models.AnalysisResult, error)
}

type AnalysisOptions struct {
	Timeout time.Duration
	Queue   ArchiveQueue
	Logger  *logrus.Logger
}

type analysisService struct {
	interviews  mongorepo.InterviewRepository
	profiles    pgrepo.ProfileRepository
	analyzerFor AnalyzerFor
	cache       cache.Cache
	claims      cache.Claimer
	queue       ArchiveQueue
	timeout     time.Duration
	log         *logrus.Logger
}

func NewAnalysisService(
	interviews mongorepo.InterviewRepository,
	profiles pgrepo.ProfileRepository,
	analyzerFor AnalyzerFor,
	c cache.Cache,
	claims cache.Claimer,
	opts AnalysisOptions,
) AnalysisService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAnalysisTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &analysisService{
		interviews:  interviews,
		profiles:    profiles,
		analyzerFor: analyzerFor,
		cache:       c,
		claims:      claims,
		queue:       opts.Queue,
		timeout:     opts.Timeout,
		log:         opts.Logger,
	}
}

func (s *analysisService) Analyze(ctx context.Context, user models.AuthUser, req AnalyzeRequest) (*models.AnalysisResult, error) {
	const op = "AnalysisService.Analyze"

	transcript := models.FinalEntries(req.Transcript)
	if len(transcript) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Valid transcript data is required.", nil)
	}
	for _, e := range transcript {
		if !e.Speaker.Valid() {
			return nil, utils.E(utils.CodeInvalidArgument, op, "unknown speaker: "+string(e.Speaker), nil)
		}
	}

	if req.InterviewID == "" {
		cfg := req.InterviewDetails
		cfg.Normalize()
		return s.run(ctx, op, user.ID, transcript, cfg, "")
	}

	iv, err := s.interviews.Get(ctx, req.InterviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if iv.UserID != user.ID {
		return nil, utils.E(utils.CodeForbidden, op, "interview belongs to another user", nil)
	}
	if iv.Status == models.StatusCompleted {
		return nil, utils.E(utils.CodeConflict, op, "interview already analyzed", nil)
	}

	claimKey := cache.AnalysisClaimKey(iv.InterviewID)
	ok, err := s.claims.Claim(ctx, claimKey, claimTTL)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to claim interview", err)
	}
	if !ok {
		return nil, utils.E(utils.CodeConflict, op, "analysis already in progress", nil)
	}

	if err := s.interviews.SetStatus(ctx, iv.InterviewID, models.StatusAnalyzing); err != nil {
		_ = s.claims.Release(ctx, claimKey)
		return nil, utils.E(utils.CodeInternal, op, "failed to mark interview analyzing", err)
	}

	res, runErr := s.run(ctx, op, user.ID, transcript, iv.InterviewConfig, iv.InterviewID)

	result := mongorepo.Result{Transcript: transcript, Analysis: res, Status: models.StatusCompleted}
	if runErr != nil {
		result.Status = models.StatusAnalysisFailed
		result.Error = runErr.Error()
	}
	// the request may have been cancelled; the outcome still has to land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.interviews.SaveResult(saveCtx, iv.InterviewID, result); err != nil {
		log := s.log.WithError(err).WithField("interview_id", iv.InterviewID)
		log.Error("failed to save analysis result")
		if runErr == nil {
			runErr = utils.E(utils.CodeInternal, op, "failed to save analysis", err)
		}
		// the claim is released below; the record must not stay analyzing
		if serr := s.interviews.SetStatus(saveCtx, iv.InterviewID, models.StatusAnalysisFailed); serr != nil {
			log.WithField("status_error", serr.Error()).Warn("interview left in analyzing status")
		}
	}
	s.invalidateHistory(saveCtx, user.ID)

	if runErr != nil {
		_ = s.claims.Release(saveCtx, claimKey)
		return nil, runErr
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(saveCtx, iv.InterviewID); err != nil {
			s.log.WithError(err).WithField("interview_id", iv.InterviewID).Warn("failed to enqueue transcript archive")
		}
	}
	return res, nil
}

func (s *analysisService) run(ctx context.Context, op, userID string, transcript []models.TranscriptEntry, cfg models.InterviewConfig, interviewID string) (*models.AnalysisResult, error) {
	analyzer, err := s.analyzerFor(ctx, s.groqKey(ctx, userID))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "analysis is not configured", err)
	}
	if c, ok := analyzer.(io.Closer); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := analyzer.Analyze(ctx, transcript, cfg, interviewID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, utils.E(utils.CodeTimeout, op, "Failed to analyze transcript", err)
		}
		return nil, utils.E(utils.CodeUpstream, op, "Failed to analyze transcript", err)
	}
	return res, nil
}

func (s *analysisService) groqKey(ctx context.Context, userID string) string {
	if s.profiles == nil || userID == "" {
		return ""
	}
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return ""
	}
	return p.GroqAPIKey
}

func (s *analysisService) invalidateHistory(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cache.HistoryKey(userID))
	}
}
