package suggest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxQuestionLen caps each rendered question.
const maxQuestionLen = 80

// questionCount is the number of questions a response carries.
const questionCount = 3

var (
	fencedArray   = regexp.MustCompile("```(?:json)?\\s*(\\[[\\s\\S]*?\\])\\s*```")
	embeddedArray = regexp.MustCompile(`\[[\s\S]*?\]`)
)

// extractText pulls the first text block out of either known response
// envelope: Anthropic content blocks or OpenAI chat choices.
func extractText(data map[string]any) string {
	if content, ok := data["content"].([]any); ok {
		for _, raw := range content {
			block, ok := raw.(map[string]any)
			if !ok || block["type"] != "text" {
				continue
			}
			if t, ok := block["text"].(string); ok && t != "" {
				return t
			}
		}
	}
	if choices, ok := data["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if c, ok := msg["content"].(string); ok && c != "" {
					return c
				}
			}
		}
	}
	return ""
}

// parseQuestions extracts a question list from model output. It tries a
// direct JSON parse, then a fenced code block, then any embedded array,
// in that order. A nil return means nothing usable was found.
func parseQuestions(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if qs := tryArray(trimmed); qs != nil {
		return qs
	}
	if m := fencedArray.FindStringSubmatch(text); m != nil {
		if qs := tryArray(m[1]); qs != nil {
			return qs
		}
	}
	if m := embeddedArray.FindString(text); m != "" {
		if qs := tryArray(m); qs != nil {
			return qs
		}
	}
	return nil
}

func tryArray(raw string) []string {
	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed) == 0 {
		return nil
	}
	if len(parsed) > questionCount {
		parsed = parsed[:questionCount]
	}
	out := make([]string, 0, len(parsed))
	for _, q := range parsed {
		s, ok := q.(string)
		if !ok {
			s = fmt.Sprintf("%v", q)
		}
		out = append(out, truncate(s, maxQuestionLen))
	}
	return out
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
