package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUltravoxURL = "https://api.ultravox.ai"

	ultravoxModel       = "fixie-ai/ultravox"
	callTemperature     = 0.7
	timeExceededMessage = "Our time for this mock interview session is up. Thank you for your participation."
	socketSampleRate    = 48000
)

var inactivityMessages = []inactivityMessage{
	{Duration: "30s", Message: "Are you still there? Just checking in."},
	{Duration: "15s", Message: "Is there anything else you'd like to add, or shall we conclude?"},
	{Duration: "10s", Message: "Okay, it seems we're done. Thank you for your time. Goodbye.", EndBehavior: "END_BEHAVIOR_HANG_UP_SOFT"},
}

type Ultravox struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewUltravox(baseURL, apiKey string, hc *http.Client) *Ultravox {
	if baseURL == "" {
		baseURL = DefaultUltravoxURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Ultravox{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: hc}
}

type inactivityMessage struct {
	Duration    string `json:"duration"`
	Message     string `json:"message"`
	EndBehavior string `json:"endBehavior,omitempty"`
}

type agentGreeting struct {
	Uninterruptible bool   `json:"uninterruptible"`
	Text            string `json:"text"`
}

type firstSpeakerSettings struct {
	Agent agentGreeting `json:"agent"`
}

type serverWebSocket struct {
	InputSampleRate  int `json:"inputSampleRate"`
	OutputSampleRate int `json:"outputSampleRate"`
}

type callMedium struct {
	WebRTC          *struct{}        `json:"webRtc,omitempty"`
	ServerWebSocket *serverWebSocket `json:"serverWebSocket,omitempty"`
}

type createCallBody struct {
	SystemPrompt         string               `json:"systemPrompt"`
	Temperature          float64              `json:"temperature"`
	Model                string               `json:"model"`
	LanguageHint         string               `json:"languageHint"`
	JoinTimeout          string               `json:"joinTimeout"`
	MaxDuration          string               `json:"maxDuration"`
	TimeExceededMessage  string               `json:"timeExceededMessage"`
	InactivityMessages   []inactivityMessage  `json:"inactivityMessages"`
	FirstSpeaker         string               `json:"firstSpeaker"`
	FirstSpeakerSettings firstSpeakerSettings `json:"firstSpeakerSettings"`
	Medium               callMedium           `json:"medium"`
	RecordingEnabled     bool                 `json:"recordingEnabled"`
}

type createCallResponse struct {
	ID      string `json:"id"`
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
}

func newCallBody(req CallRequest) createCallBody {
	medium := callMedium{WebRTC: &struct{}{}}
	if req.Medium == MediumServerWebSocket {
		medium = callMedium{ServerWebSocket: &serverWebSocket{InputSampleRate: socketSampleRate, OutputSampleRate: socketSampleRate}}
	}
	return createCallBody{
		SystemPrompt:        req.SystemPrompt,
		Temperature:         callTemperature,
		Model:               ultravoxModel,
		LanguageHint:        "en-US",
		JoinTimeout:         "30s",
		MaxDuration:         "1800s",
		TimeExceededMessage: timeExceededMessage,
		InactivityMessages:  inactivityMessages,
		FirstSpeaker:        "FIRST_SPEAKER_AGENT",
		FirstSpeakerSettings: firstSpeakerSettings{
			Agent: agentGreeting{Uninterruptible: true, Text: req.Greeting},
		},
		Medium:           medium,
		RecordingEnabled: true,
	}
}

func (u *Ultravox) CreateCall(ctx context.Context, req CallRequest) (Call, error) {
	key := u.apiKey
	if strings.TrimSpace(req.APIKey) != "" {
		key = req.APIKey
	}
	if key == "" {
		return Call{}, errors.New("ultravox api key not configured")
	}

	payload, err := json.Marshal(newCallBody(req))
	if err != nil {
		return Call{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/calls", bytes.NewReader(payload))
	if err != nil {
		return Call{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", key)

	resp, err := u.http.Do(httpReq)
	if err != nil {
		return Call{}, fmt.Errorf("ultravox create call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Call{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Call{}, &ProviderError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out createCallResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Call{}, fmt.Errorf("ultravox create call: decode response: %w", err)
	}
	call := Call{CallID: out.ID, JoinURL: out.JoinURL}
	if call.CallID == "" {
		call.CallID = out.CallID
	}
	if call.CallID == "" || call.JoinURL == "" {
		return Call{}, errors.New("ultravox create call: response missing callId or joinUrl")
	}
	return call, nil
}
