package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yoockh/intervuo/internal/models"
)

const maxResponseBody = 1 << 20

// Client reaches the backend over HTTP with a bearer token. It satisfies
// the session controller's Analyzer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

type analyzeRequest struct {
	Transcript       []models.TranscriptEntry `json:"transcript"`
	InterviewDetails models.InterviewConfig   `json:"interviewDetails"`
	InterviewID      string                   `json:"interviewId,omitempty"`
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (c *Client) Analyze(ctx context.Context, transcript []models.TranscriptEntry, cfg models.InterviewConfig, sessionID string) (*models.AnalysisResult, error) {
	body := analyzeRequest{Transcript: transcript, InterviewDetails: cfg, InterviewID: sessionID}

	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/api/analyze-transcript", body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	return ParseResult(string(raw))
}

// Do sends in as JSON and decodes a 2xx response into out.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
