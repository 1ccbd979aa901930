package analysis

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/prompt"
	"github.com/yoockh/intervuo/internal/providers/llm"
)

const (
	relayTemperature = 0.3
	relayMaxTokens   = 1500
)

// Relay analyses transcripts in-process with an LLM provider.
type Relay struct {
	llm llm.Provider
	log *logrus.Logger
}

func NewRelay(provider llm.Provider, log *logrus.Logger) *Relay {
	if log == nil {
		log = logrus.New()
	}
	return &Relay{llm: provider, log: log}
}

func (r *Relay) Analyze(ctx context.Context, transcript []models.TranscriptEntry, cfg models.InterviewConfig, sessionID string) (*models.AnalysisResult, error) {
	entries := models.FinalEntries(transcript)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty transcript", ErrAnalysisFailed)
	}

	out, err := r.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.AnalystSystem},
			{Role: llm.RoleUser, Content: prompt.Analysis(entries, cfg)},
		},
		Temperature: relayTemperature,
		MaxTokens:   relayMaxTokens,
		JSON:        true,
	})
	if err != nil {
		r.log.WithError(err).WithField("interview_id", sessionID).Error("llm analysis request failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	res, err := ParseResult(out)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"interview_id": sessionID,
			"response_len": len(out),
		}).Error("could not parse llm analysis")
		return nil, err
	}

	r.log.WithFields(logrus.Fields{"interview_id": sessionID, "entries": len(entries)}).Info("transcript analysed")
	return res, nil
}

// Close releases the underlying provider.
func (r *Relay) Close() error { return r.llm.Close() }
