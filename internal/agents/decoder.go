package agents

import (
	"encoding/json"
	"strings"
)

// decodeStructured parses a structured agent response into its schema type.
// Handles clean JSON, markdown code fences, and JSON embedded in prose.
// Text-only batch agents never go through here; their output is validated
// by the line-count invariant instead.
func decodeStructured[T any](raw, agentName string) (T, error) {
	var zero T
	content := strings.TrimSpace(raw)

	// Try direct parse first
	var value T
	firstErr := json.Unmarshal([]byte(content), &value)
	if firstErr == nil {
		return value, nil
	}

	// Try extracting from markdown code fences
	if inner, ok := stripCodeFence(content); ok {
		if err := json.Unmarshal([]byte(inner), &value); err == nil {
			return value, nil
		}
	}

	// Try finding the outermost { ... } JSON object in the text
	if extracted := extractJSONObject(content); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), &value); err == nil {
			return value, nil
		}
	}

	return zero, &MalformedResponseError{Agent: agentName, Raw: raw, Err: firstErr}
}

// stripCodeFence removes a leading/trailing markdown fence, with an
// optional language tag on the opening line.
func stripCodeFence(content string) (string, bool) {
	idx := strings.Index(content, "```")
	if idx < 0 {
		return "", false
	}
	inner := content[idx+3:]
	if nl := strings.Index(inner, "\n"); nl >= 0 {
		inner = inner[nl+1:]
	}
	if end := strings.Index(inner, "```"); end >= 0 {
		inner = inner[:end]
	}
	return strings.TrimSpace(inner), true
}

// extractJSONObject finds the outermost balanced { ... } block in s.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
