package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no content.
var ErrEmptyResponse = errors.New("empty response")

// StripCodeFence removes a surrounding markdown code block, if any.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// DecodeJSON parses a JSON object from an LLM response into v, tolerating
// markdown code fences.
func DecodeJSON(text string, v any) error {
	text = StripCodeFence(text)
	if text == "" {
		return ErrEmptyResponse
	}
	return json.Unmarshal([]byte(text), v)
}
