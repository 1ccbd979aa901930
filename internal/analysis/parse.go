// Package analysis turns a finalized transcript into an AnalysisResult,
// either in-process through an LLM (Relay) or over HTTP (Client).
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yoockh/intervuo/internal/models"
)

// ErrAnalysisFailed covers upstream failures, empty output and output that
// holds no recoverable JSON object.
var ErrAnalysisFailed = errors.New("analysis failed")

const (
	minScore = 1
	maxScore = 10
)

type rawResult struct {
	Summary  string                     `json:"summary"`
	Analysis rawFeedback                `json:"analysis"`
	Scores   map[string]json.RawMessage `json:"scores"`
}

type rawFeedback struct {
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// ParseResult decodes model output. The whole text is tried first; when that
// fails the span from the first '{' to the last '}' is tried, which recovers
// objects wrapped in prose or code fences.
func ParseResult(text string) (*models.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrAnalysisFailed)
	}

	var raw rawResult
	err := json.Unmarshal([]byte(text), &raw)
	if err != nil {
		span, ok := braceSpan(text)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object in response", ErrAnalysisFailed)
		}
		raw = rawResult{}
		if err := json.Unmarshal([]byte(span), &raw); err != nil {
			return nil, fmt.Errorf("%w: malformed JSON: %w", ErrAnalysisFailed, err)
		}
	}
	return raw.normalize(), nil
}

func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func (r rawResult) normalize() *models.AnalysisResult {
	res := &models.AnalysisResult{
		Summary: strings.TrimSpace(r.Summary),
		Analysis: models.Feedback{
			Strengths:           nonNil(r.Analysis.Strengths),
			AreasForImprovement: nonNil(r.Analysis.AreasForImprovement),
		},
		Scores: make(map[string]*int, len(models.Metrics)),
	}
	for _, m := range models.Metrics {
		res.Scores[m] = score(r.Scores[m])
	}
	return res
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// score accepts integers, integral floats and numeric strings in range.
// Anything else, "N/A" included, becomes nil.
func score(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if f != math.Trunc(f) || f < minScore || f > maxScore {
		return nil
	}
	v := int(f)
	return &v
}
