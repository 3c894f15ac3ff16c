package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Part is one content element of a model request: either text or an image.
type Part struct {
	Text      string
	ImageMIME string
	ImageData []byte
}

// TextPart builds a text content part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// ImagePart builds an image content part from raw encoded bytes.
func ImagePart(mimeType string, data []byte) Part {
	return Part{ImageMIME: mimeType, ImageData: data}
}

// InferRequest describes one structured-output model call.
type InferRequest struct {
	Model        string
	SystemPrompt string
	Parts        []Part
	Schema       *genai.Schema
	Temperature  float32
}

// Client abstracts the generative model provider. Implementations must return
// either a fully-formed JSON document conforming to the requested schema or a
// *ModelError, never a partial fragment.
type Client interface {
	Infer(ctx context.Context, req InferRequest) (json.RawMessage, error)
}

// ModelError covers every gateway failure: transport, quota, empty candidates,
// or output that does not conform to the requested schema. Callers treat all
// of them as retryable.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %s failed", e.Op)
	}
	return fmt.Sprintf("model %s failed: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsModelError reports whether err is (or wraps) a gateway failure.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
