package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuestionsDirectArray(t *testing.T) {
	got := parseQuestions(`["a","b","c"]`)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestParseQuestionsFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n[\"a\",\"b\",\"c\"]\n```\nEnjoy."
	assert.Equal(t, []string{"a", "b", "c"}, parseQuestions(text))

	text = "```\n[\"x\"]\n```"
	assert.Equal(t, []string{"x"}, parseQuestions(text))
}

func TestParseQuestionsEmbeddedArray(t *testing.T) {
	text := `Sure! The questions are ["q1", "q2"] as requested.`
	assert.Equal(t, []string{"q1", "q2"}, parseQuestions(text))
}

func TestParseQuestionsUnusableInput(t *testing.T) {
	assert.Nil(t, parseQuestions(""))
	assert.Nil(t, parseQuestions("   "))
	assert.Nil(t, parseQuestions("no array here"))
	assert.Nil(t, parseQuestions("[]"))
	assert.Nil(t, parseQuestions(`{"not": "an array"}`))
}

func TestParseQuestionsTruncatesAndCaps(t *testing.T) {
	long := strings.Repeat("问", 100)
	got := parseQuestions(`["` + long + `","b","c","d","e"]`)
	assert.Len(t, got, 3)
	assert.Equal(t, 80, len([]rune(got[0])))
}

func TestParseQuestionsStringifiesNonStrings(t *testing.T) {
	got := parseQuestions(`[1, "two"]`)
	assert.Equal(t, []string{"1", "two"}, got)
}

func TestExtractTextAnthropicEnvelope(t *testing.T) {
	data := map[string]any{
		"content": []any{
			map[string]any{"type": "tool_use", "name": "x"},
			map[string]any{"type": "text", "text": "hello"},
		},
	}
	assert.Equal(t, "hello", extractText(data))
}

func TestExtractTextOpenAIEnvelope(t *testing.T) {
	data := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": "hi"}},
		},
	}
	assert.Equal(t, "hi", extractText(data))
}

func TestExtractTextUnknownEnvelope(t *testing.T) {
	assert.Equal(t, "", extractText(map[string]any{"foo": "bar"}))
}

func TestPad(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, pad([]string{"a", "b", "c"}))
	got := pad([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b", DefaultQuestions[2]}, got)
	got = pad([]string{"a"})
	assert.Equal(t, []string{"a", DefaultQuestions[1], DefaultQuestions[2]}, got)
}
