package analyses

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeAIResultValid(t *testing.T) {
	raw := json.RawMessage(`{
		"reasoning": "one value below range",
		"summary": {"is_critical": false, "general_comment": "Mild anemia signs."},
		"indicators": [{"name": "Hemoglobin", "slug": "hemoglobin", "value": "11,2", "status": "low"}],
		"causes": [{"title": "Iron deficiency", "description": "Most common cause."}],
		"recommendations": [{"type": "doctor", "text": "Discuss with a physician."}]
	}`)

	result, err := DecodeAIResult(raw)
	if err != nil {
		t.Fatalf("DecodeAIResult: %v", err)
	}
	if result.Summary.GeneralComment != "Mild anemia signs." {
		t.Fatalf("summary = %q", result.Summary.GeneralComment)
	}
	if len(result.Indicators) != 1 || result.Indicators[0].Status != IndicatorLow {
		t.Fatalf("indicators = %+v", result.Indicators)
	}
}

func TestDecodeAIResultRejections(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "not json",
			raw:     `{"summary":`,
			wantErr: "decode result",
		},
		{
			name:    "missing summary",
			raw:     `{"indicators": []}`,
			wantErr: "missing a summary",
		},
		{
			name:    "blank summary comment",
			raw:     `{"summary": {"general_comment": "   "}}`,
			wantErr: "missing a summary",
		},
		{
			name:    "nameless indicator",
			raw:     `{"summary": {"general_comment": "ok"}, "indicators": [{"name": " ", "value": "1", "status": "normal"}]}`,
			wantErr: "has no name",
		},
		{
			name:    "invalid status",
			raw:     `{"summary": {"general_comment": "ok"}, "indicators": [{"name": "TSH", "value": "1", "status": "elevated"}]}`,
			wantErr: "invalid status",
		},
		{
			name:    "titleless cause",
			raw:     `{"summary": {"general_comment": "ok"}, "causes": [{"title": "", "description": "x"}]}`,
			wantErr: "has no title",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAIResult(json.RawMessage(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestDecodeRawExtractionAllowsZeroIndicators(t *testing.T) {
	extraction, err := DecodeRawExtraction(json.RawMessage(`{"lab_name": "TestLab", "indicators": []}`))
	if err != nil {
		t.Fatalf("DecodeRawExtraction: %v", err)
	}
	if len(extraction.Indicators) != 0 {
		t.Fatalf("indicators = %+v", extraction.Indicators)
	}
}

func TestDecodeRawExtractionRejectsNamelessIndicator(t *testing.T) {
	_, err := DecodeRawExtraction(json.RawMessage(`{"indicators": [{"name": "", "value": "5"}]}`))
	if err == nil {
		t.Fatal("expected error for nameless indicator")
	}
}
