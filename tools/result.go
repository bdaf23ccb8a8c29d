package tools

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is one element of a tool result payload. Only text blocks
// are produced.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform envelope every tool call returns. IsError is the
// only out-of-band failure signal; the text payload is otherwise opaque
// JSON for the model to read.
type Result struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"is_error,omitempty"`
}

// Text returns the concatenated text of all content blocks.
func (r Result) Text() string {
	switch len(r.Content) {
	case 0:
		return ""
	case 1:
		return r.Content[0].Text
	}
	var out string
	for _, block := range r.Content {
		out += block.Text
	}
	return out
}

// textResult wraps an already-rendered string in a success envelope.
func textResult(text string) Result {
	return Result{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// jsonResult marshals v and wraps it in a success envelope. Marshal
// failures degrade to an error result; v is always built from
// JSON-friendly values so this is not expected to trigger.
func jsonResult(v any) Result {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding result: %v", err)
	}
	return textResult(string(raw))
}

// errorResult builds an error-flagged text envelope.
func errorResult(format string, args ...any) Result {
	return Result{
		Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// jsonErrorResult marshals v into an error-flagged envelope, used where
// the failure payload itself is structured JSON.
func jsonErrorResult(v any) Result {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorResult("Error encoding result: %v", err)
	}
	return Result{
		Content: []ContentBlock{{Type: "text", Text: string(raw)}},
		IsError: true,
	}
}
