package gemini

import (
	"encoding/json"
	"strings"
)

// NormalizeHTML cleans a model code response: markdown fences are stripped and
// JSON-wrapped payloads shaped like {"html": "..."} are unwrapped. Models
// alternate between these forms run to run.
func NormalizeHTML(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	text = stripFences(text)

	if strings.HasPrefix(text, "{") {
		var wrapper struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal([]byte(text), &wrapper); err == nil && wrapper.HTML != "" {
			return strings.TrimSpace(stripFences(wrapper.HTML))
		}
		if idx := strings.Index(text, `"html"`); idx >= 0 {
			if extracted := extractJSONStringAfter(text, idx+len(`"html"`)); extracted != "" {
				return strings.TrimSpace(stripFences(extracted))
			}
		}
	}

	return text
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		// Drop the language tag line (```html, ```json, or bare ```).
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSONStringAfter scans past a key position for the next JSON string
// literal and decodes it. Used when the wrapper is truncated or has trailing
// junk that breaks a full unmarshal.
func extractJSONStringAfter(text string, from int) string {
	rest := text[from:]
	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return ""
	}
	rest = rest[start:]
	var out string
	decoder := json.NewDecoder(strings.NewReader(rest))
	if err := decoder.Decode(&out); err != nil {
		return ""
	}
	return out
}
