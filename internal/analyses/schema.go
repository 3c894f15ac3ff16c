package analyses

import "github.com/google/generative-ai-go/genai"

// Response schemas handed to the model gateway. The API enforces them server
// side; DecodeRawExtraction/DecodeAIResult re-validate at the trust boundary.

func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"lab_name":     {Type: genai.TypeString},
			"test_date":    {Type: genai.TypeString},
			"patient_name": {Type: genai.TypeString},
			"indicators": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":      {Type: genai.TypeString},
						"value":     {Type: genai.TypeString},
						"unit":      {Type: genai.TypeString},
						"ref_range": {Type: genai.TypeString},
					},
					Required: []string{"name", "value"},
				},
			},
		},
		Required: []string{"indicators"},
	}
}

func aiResultSchema() *genai.Schema {
	indicatorStatus := &genai.Schema{
		Type: genai.TypeString,
		Enum: []string{IndicatorNormal, IndicatorLow, IndicatorHigh, IndicatorCritical},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reasoning": {Type: genai.TypeString},
			"patient_info": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"extracted_name":       {Type: genai.TypeString},
					"extracted_birth_date": {Type: genai.TypeString},
					"extracted_gender":     {Type: genai.TypeString},
				},
			},
			"summary": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"is_critical":     {Type: genai.TypeBoolean},
					"general_comment": {Type: genai.TypeString},
				},
				Required: []string{"is_critical", "general_comment"},
			},
			"indicators": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":      {Type: genai.TypeString},
						"slug":      {Type: genai.TypeString},
						"value":     {Type: genai.TypeString},
						"unit":      {Type: genai.TypeString},
						"ref_range": {Type: genai.TypeString},
						"status":    indicatorStatus,
						"comment":   {Type: genai.TypeString},
					},
					Required: []string{"name", "value", "status"},
				},
			},
			"causes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
					},
					Required: []string{"title", "description"},
				},
			},
			"recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type": {Type: genai.TypeString},
						"text": {Type: genai.TypeString},
					},
					Required: []string{"type", "text"},
				},
			},
		},
		Required: []string{"summary", "indicators"},
	}
}
