package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON parses a JSON object out of model output. Models wrap payloads
// in prose or markdown fences, so everything outside the first '{' and the
// last '}' is discarded before unmarshaling.
func ExtractJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parsing JSON payload: %w", err)
	}
	return result, nil
}

// GetString reads a string field with a fallback.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetFloat reads a numeric field with a fallback.
func GetFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return fallback
}
