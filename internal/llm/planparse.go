package llm

import (
	"encoding/json"
	"strings"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ExtractPlan parses decide_plain's reply text into a models.Plan (§4.B,
// §6.2). It handles a fenced ```json``` block first, then falls back to the
// first balanced {...} object in the text. Invalid JSON yields an empty plan
// rather than an error — spec.md §4.B: "invalid JSON surfaces as empty plan
// (forces fallback)".
func ExtractPlan(reply string) models.Plan {
	candidate := extractFencedJSON(reply)
	if candidate == "" {
		candidate = extractBracketMatched(reply)
	}
	if candidate == "" {
		return models.Plan{}
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
		return models.Plan{}
	}
	return plan
}

func extractFencedJSON(text string) string {
	const openFence = "```json"
	start := strings.Index(text, openFence)
	if start == -1 {
		// Tolerate a bare ``` fence too.
		start = strings.Index(text, "```")
		if start == -1 {
			return ""
		}
		start += len("```")
	} else {
		start += len(openFence)
	}
	rest := text[start:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// extractBracketMatched scans for the first top-level {...} object, tracking
// nesting depth and skipping braces inside string literals.
func extractBracketMatched(text string) string {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
