package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Client over the Google generative AI API. A single
// instance is safe for concurrent use by multiple in-flight tasks.
type Gemini struct {
	client       *genai.Client
	defaultModel string
}

// NewGemini constructs a Gemini gateway.
func NewGemini(ctx context.Context, apiKey, defaultModel string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}
	return &Gemini{client: cl, defaultModel: defaultModel}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Infer runs one structured-output call. The response must be a single JSON
// document conforming to req.Schema; anything else is a *ModelError.
func (g *Gemini) Infer(ctx context.Context, req InferRequest) (json.RawMessage, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.defaultModel
	}

	m := g.client.GenerativeModel(modelName)
	m.SetTemperature(req.Temperature)
	m.ResponseMIMEType = "application/json"
	if req.Schema != nil {
		m.ResponseSchema = req.Schema
	}
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	parts := make([]genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.ImageData != nil {
			parts = append(parts, genai.Blob{MIMEType: p.ImageMIME, Data: p.ImageData})
			continue
		}
		parts = append(parts, genai.Text(p.Text))
	}
	if len(parts) == 0 {
		return nil, &ModelError{Op: modelName, Err: errors.New("no content parts")}
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &ModelError{Op: modelName, Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &ModelError{Op: modelName, Err: errors.New("no candidates returned")}
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	raw := json.RawMessage(strings.TrimSpace(b.String()))
	if !json.Valid(raw) {
		return nil, &ModelError{Op: modelName, Err: errors.New("response is not valid JSON")}
	}
	return raw, nil
}

var _ Client = (*Gemini)(nil)
