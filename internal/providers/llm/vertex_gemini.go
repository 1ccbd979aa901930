package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

const defaultGeminiModel = "gemini-1.5-flash"

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// Complete streams the answer and joins the chunks. System messages become
// the model's system instruction.
func (v *VertexGemini) Complete(ctx context.Context, req Request) (string, error) {
	m := v.client.GenerativeModel(v.modelName)
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}

	var system []vertexgenai.Part
	var parts []vertexgenai.Part
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, vertexgenai.Text(msg.Content))
			continue
		}
		parts = append(parts, vertexgenai.Text(msg.Content))
	}
	if len(system) > 0 {
		m.SystemInstruction = &vertexgenai.Content{Parts: system}
	}
	if len(parts) == 0 {
		return "", errors.New("vertex: no user content")
	}

	var b strings.Builder
	it := m.GenerateContentStream(ctx, parts...)
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", err
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
