package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseAnalysisJSON parses the JSON analysis returned by an LLM provider
func parseAnalysisJSON(text string) (*AnalysisResult, error) {
	text = strings.TrimSpace(text)

	// Models like to wrap their answer in markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var result AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Tags are matched exactly downstream
	for d := range result.Documents {
		doc := &result.Documents[d]
		normalizeFields(doc.SummaryFields)
		for g := range doc.LineItemGroups {
			for i := range doc.LineItemGroups[g].LineItems {
				normalizeFields(doc.LineItemGroups[g].LineItems[i].Fields)
			}
		}
	}

	return &result, nil
}

func normalizeFields(fields []Field) {
	for i := range fields {
		fields[i].Type = strings.ToUpper(strings.TrimSpace(fields[i].Type))
		fields[i].Value = strings.TrimSpace(fields[i].Value)
	}
}
