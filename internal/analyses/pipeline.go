package analyses

import (
	"context"
	"encoding/json"
	"fmt"

	"labreport-backend/internal/docload"
	"labreport-backend/internal/llm"
)

// Stage temperatures. Transcription and verification run cold; interpretation
// gets some room to phrase explanations.
const (
	extractionTemperature     = 0.1
	interpretationTemperature = 0.4
	verificationTemperature   = 0.1
)

// Pipeline runs the three model stages over a local document file.
// Stage one transcribes the pages, stage two interprets the transcription,
// stage three verifies the interpretation against the transcription.
type Pipeline struct {
	Gateway             llm.Client
	ExtractionModel     string
	InterpretationModel string

	// loadPages is swappable in tests; nil means docload.LoadPages.
	loadPages func(path string) ([]docload.Page, error)
}

// NewPipeline wires a pipeline over the given gateway and model names.
func NewPipeline(gateway llm.Client, extractionModel, interpretationModel string) *Pipeline {
	return &Pipeline{
		Gateway:             gateway,
		ExtractionModel:     extractionModel,
		InterpretationModel: interpretationModel,
	}
}

// Run executes the full pipeline and returns the verified result. Any stage
// failing aborts the run. patientContext is free-form text describing the
// patient; pass an empty string when nothing is known.
func (p *Pipeline) Run(ctx context.Context, filePath, patientContext string) (*AIResult, error) {
	load := p.loadPages
	if load == nil {
		load = docload.LoadPages
	}
	pages, err := load(filePath)
	if err != nil {
		return nil, err
	}

	rawJSON, err := p.extract(ctx, pages)
	if err != nil {
		return nil, err
	}

	if patientContext == "" {
		patientContext = unknownPatientContext
	}

	draftJSON, err := p.interpret(ctx, rawJSON, patientContext)
	if err != nil {
		return nil, err
	}

	return p.verify(ctx, rawJSON, draftJSON)
}

func (p *Pipeline) extract(ctx context.Context, pages []docload.Page) (json.RawMessage, error) {
	parts := make([]llm.Part, 0, len(pages)+1)
	parts = append(parts, llm.TextPart("Transcribe this lab report."))
	for _, pg := range pages {
		parts = append(parts, llm.ImagePart(pg.MIMEType, pg.Data))
	}

	raw, err := p.Gateway.Infer(ctx, llm.InferRequest{
		Model:        p.ExtractionModel,
		SystemPrompt: extractorPrompt,
		Parts:        parts,
		Schema:       extractionSchema(),
		Temperature:  extractionTemperature,
	})
	if err != nil {
		return nil, err
	}
	if _, err := DecodeRawExtraction(raw); err != nil {
		return nil, &llm.ModelError{Op: "extraction", Err: err}
	}
	return raw, nil
}

func (p *Pipeline) interpret(ctx context.Context, rawJSON json.RawMessage, patientContext string) (json.RawMessage, error) {
	prompt := fmt.Sprintf("Patient context: %s\n\nRaw lab report data:\n%s", patientContext, rawJSON)

	draft, err := p.Gateway.Infer(ctx, llm.InferRequest{
		Model:        p.InterpretationModel,
		SystemPrompt: interpreterPrompt,
		Parts:        []llm.Part{llm.TextPart(prompt)},
		Schema:       aiResultSchema(),
		Temperature:  interpretationTemperature,
	})
	if err != nil {
		return nil, err
	}
	if _, err := DecodeAIResult(draft); err != nil {
		return nil, &llm.ModelError{Op: "interpretation", Err: err}
	}
	return draft, nil
}

func (p *Pipeline) verify(ctx context.Context, rawJSON, draftJSON json.RawMessage) (*AIResult, error) {
	prompt := fmt.Sprintf("Raw lab report data:\n%s\n\nDraft interpretation:\n%s", rawJSON, draftJSON)

	verified, err := p.Gateway.Infer(ctx, llm.InferRequest{
		Model:        p.InterpretationModel,
		SystemPrompt: verifierPrompt,
		Parts:        []llm.Part{llm.TextPart(prompt)},
		Schema:       aiResultSchema(),
		Temperature:  verificationTemperature,
	})
	if err != nil {
		return nil, err
	}
	result, err := DecodeAIResult(verified)
	if err != nil {
		return nil, &llm.ModelError{Op: "verification", Err: err}
	}
	return result, nil
}
