package workerproc

import (
	"context"
	"errors"
	"testing"
)

type fakeProcessor struct {
	gotID      string
	gotAttempt int
	calls      int
	err        error
}

func (p *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string, attempt int) error {
	p.calls++
	p.gotID = analysisID
	p.gotAttempt = attempt
	return p.err
}

func TestParseMessageEmptyBody(t *testing.T) {
	_, meta, err := ParseMessage("   ")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if meta.BodyLen != 3 {
		t.Fatalf("meta.BodyLen = %d, want 3", meta.BodyLen)
	}
}

func TestParseMessageInvalidJSON(t *testing.T) {
	_, meta, err := ParseMessage("{not json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodySHA == "" {
		t.Fatal("meta should carry a body hash for diagnostics")
	}
}

func TestParseMessageMissingAnalysisID(t *testing.T) {
	_, _, err := ParseMessage(`{"requestId":"req-1","attempt":1}`)
	var missingErr ErrMissingAnalysisID
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ErrMissingAnalysisID, got %v", err)
	}
	if missingErr.RequestID != "req-1" {
		t.Fatalf("RequestID = %q, want req-1", missingErr.RequestID)
	}
}

func TestParseMessageClampsNegativeAttempt(t *testing.T) {
	msg, _, err := ParseMessage(`{"analysisId":"analysis-1","attempt":-3}`)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Attempt != 0 {
		t.Fatalf("attempt = %d, want 0", msg.Attempt)
	}
}

func TestHandleMessagePassesAttemptThrough(t *testing.T) {
	processor := &fakeProcessor{}
	body := `{"analysisId":"analysis-1","requestId":"req-1","attempt":3}`

	if err := HandleMessage(context.Background(), processor, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if processor.calls != 1 || processor.gotID != "analysis-1" || processor.gotAttempt != 3 {
		t.Fatalf("processor got id=%q attempt=%d calls=%d", processor.gotID, processor.gotAttempt, processor.calls)
	}
}

func TestHandleMessageWrapsProcessingFailure(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("pipeline down")}
	body := `{"analysisId":"analysis-1","requestId":"req-1","attempt":2}`

	err := HandleMessage(context.Background(), processor, body)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.AnalysisID != "analysis-1" || procErr.Attempt != 2 {
		t.Fatalf("ErrProcess = %+v", procErr)
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, `{"analysisId":"x"}`); err == nil {
		t.Fatal("expected error for nil processor")
	}
}
