package ai

import (
	"encoding/json"
	"log"
	"strings"
)

const fallbackText = "I didn't catch that. Could you repeat?"

// Fallback is the fixed contract object substituted whenever the provider
// reply cannot be decoded. It never carries updates and never completes the
// call.
func Fallback() Response {
	return Response{
		AssistantText: fallbackText,
		NextState:     "unknown",
		IsComplete:    false,
		Confidence:    0,
	}
}

// Parse decodes a provider reply into the turn contract. The reply is
// expected to be a single JSON object but may be wrapped in markdown fences or
// other formatting noise; the first well-formed object is extracted. Any
// failure yields Fallback; parse errors never escape this boundary.
func Parse(raw string) Response {
	candidate := firstJSONObject(stripMarkdownFences(raw))
	if candidate == "" {
		if raw != "" {
			log.Printf("⚠️ No JSON object in provider reply (len=%d)", len(raw))
		}
		return Fallback()
	}

	// Confidence is a pointer on the wire so an omitted field is
	// distinguishable from an explicit zero; absent means 0.5.
	var wire struct {
		AssistantText    string   `json:"assistant_text"`
		ExtractedUpdates Updates  `json:"extracted_updates"`
		NextState        string   `json:"next_state"`
		IsComplete       bool     `json:"is_complete"`
		Confidence       *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		log.Printf("⚠️ Failed to parse provider JSON: %v", err)
		return Fallback()
	}

	resp := Response{
		AssistantText:    wire.AssistantText,
		ExtractedUpdates: wire.ExtractedUpdates,
		NextState:        wire.NextState,
		IsComplete:       wire.IsComplete,
		Confidence:       0.5,
	}
	if wire.Confidence != nil {
		resp.Confidence = clamp01(*wire.Confidence)
	}
	if strings.TrimSpace(resp.AssistantText) == "" {
		resp.AssistantText = fallbackText
	}
	if resp.NextState == "" {
		resp.NextState = "unknown"
	}
	return resp
}

// stripMarkdownFences removes backticks and a "json" prefix if the model tries
// to be helpful.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

// firstJSONObject returns the first balanced {...} span, honoring strings and
// escapes, or "" if none exists.
func firstJSONObject(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
