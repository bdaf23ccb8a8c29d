package agent

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextgraph-ai/backend/tools"
)

// scriptedModel replays a fixed sequence of assistant turns.
type scriptedModel struct {
	turns []*einoschema.Message
	next  int
}

func (m *scriptedModel) pop() *einoschema.Message {
	if m.next >= len(m.turns) {
		return einoschema.AssistantMessage("", nil)
	}
	turn := m.turns[m.next]
	m.next++
	return turn
}

func (m *scriptedModel) Generate(context.Context, []*einoschema.Message, ...model.Option) (*einoschema.Message, error) {
	return m.pop(), nil
}

func (m *scriptedModel) Stream(context.Context, []*einoschema.Message, ...model.Option) (*einoschema.StreamReader[*einoschema.Message], error) {
	return einoschema.StreamReaderFromArray([]*einoschema.Message{m.pop()}), nil
}

func (m *scriptedModel) WithTools([]*einoschema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type scriptedDispatcher struct {
	results map[string]tools.Result
	calls   []string
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, name string, _ map[string]any) tools.Result {
	d.calls = append(d.calls, name)
	if r, ok := d.results[name]; ok {
		return r
	}
	return tools.Result{Content: []tools.ContentBlock{{Type: "text", Text: "{}"}}}
}

type staticSummary string

func (s staticSummary) Summary(context.Context) string { return string(s) }

func newTestSession(t *testing.T, m *scriptedModel, d *scriptedDispatcher, opts Options) *Session {
	t.Helper()
	build := func(context.Context, string) (model.ToolCallingChatModel, error) { return m, nil }
	s := NewSession(d, staticSummary("Empty schema."), build, opts, slog.New(slog.DiscardHandler))
	require.NoError(t, s.Connect(context.Background()))
	return s
}

func toolCallTurn(id, name, args string) *einoschema.Message {
	return einoschema.AssistantMessage("", []einoschema.ToolCall{
		{ID: id, Function: einoschema.FunctionCall{Name: name, Arguments: args}},
	})
}

func TestQueryRequiresConnection(t *testing.T) {
	s := NewSession(&scriptedDispatcher{}, staticSummary(""), nil, Options{}, slog.New(slog.DiscardHandler))
	_, err := s.Query(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	err = s.Stream(context.Background(), "hi", nil, func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestQueryPlainAnswer(t *testing.T) {
	m := &scriptedModel{turns: []*einoschema.Message{einoschema.AssistantMessage("42", nil)}}
	d := &scriptedDispatcher{}
	s := newTestSession(t, m, d, Options{Model: "test-model"})

	reply, err := s.Query(context.Background(), "meaning of life?", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", reply.Response)
	assert.Empty(t, reply.ToolCalls)
	assert.NotNil(t, reply.ToolCalls)
	assert.Empty(t, d.calls)
}

func TestQueryRunsToolsThenAnswers(t *testing.T) {
	m := &scriptedModel{turns: []*einoschema.Message{
		toolCallTurn("c1", tools.NameGetSchema, "{}"),
		einoschema.AssistantMessage("done", nil),
	}}
	d := &scriptedDispatcher{}
	s := newTestSession(t, m, d, Options{})

	reply, err := s.Query(context.Background(), "what labels exist?", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Response)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, tools.NameGetSchema, reply.ToolCalls[0].Name)
	assert.Equal(t, []string{tools.NameGetSchema}, d.calls)
}

func TestStreamEventOrder(t *testing.T) {
	m := &scriptedModel{turns: []*einoschema.Message{
		toolCallTurn("c1", tools.NameSearchNodes, `{"label":"Person"}`),
		einoschema.AssistantMessage("found them", nil),
	}}
	d := &scriptedDispatcher{results: map[string]tools.Result{
		tools.NameSearchNodes: {Content: []tools.ContentBlock{{Type: "text", Text: `{"node_count": 3}`}}},
	}}
	s := newTestSession(t, m, d, Options{Model: "test-model"})

	var events []Event
	err := s.Stream(context.Background(), "find people", nil, func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 5)

	ctxEvent, ok := events[0].(ContextEvent)
	require.True(t, ok)
	assert.Equal(t, "test-model", ctxEvent.Context.Model)
	assert.Equal(t, tools.AllNames, ctxEvent.Context.AvailableTools)
	assert.NotEmpty(t, ctxEvent.Context.SystemPrompt)

	use, ok := events[1].(ToolUseEvent)
	require.True(t, ok)
	assert.Equal(t, tools.NameSearchNodes, use.Name)
	assert.Equal(t, "Person", use.Input["label"])

	result, ok := events[2].(ToolResultEvent)
	require.True(t, ok)
	assert.Equal(t, tools.NameSearchNodes, result.Name)
	decoded, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), decoded["node_count"])

	text, ok := events[3].(TextEvent)
	require.True(t, ok)
	assert.Equal(t, "found them", text.Content)

	done, ok := events[4].(DoneEvent)
	require.True(t, ok)
	require.Len(t, done.ToolCalls, 1)
	assert.Equal(t, tools.NameSearchNodes, done.ToolCalls[0].Name)
}

func TestStreamUnparseableToolResultDegradesToText(t *testing.T) {
	m := &scriptedModel{turns: []*einoschema.Message{
		toolCallTurn("c1", tools.NameGetSchema, "{}"),
		einoschema.AssistantMessage("ok", nil),
	}}
	d := &scriptedDispatcher{results: map[string]tools.Result{
		tools.NameGetSchema: {Content: []tools.ContentBlock{{Type: "text", Text: "Error getting schema: boom"}}, IsError: true},
	}}
	s := newTestSession(t, m, d, Options{})

	var resultEvent *ToolResultEvent
	err := s.Stream(context.Background(), "schema?", nil, func(e Event) error {
		if r, ok := e.(ToolResultEvent); ok {
			resultEvent = &r
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, resultEvent)
	assert.Equal(t, "Error getting schema: boom", resultEvent.Output)
}

func TestConnectOverrides(t *testing.T) {
	m := &scriptedModel{}
	s := newTestSession(t, m, &scriptedDispatcher{}, Options{
		SystemPrompt: "  custom prompt  ",
		EnabledTools: []string{tools.NameGetSchema},
		Model:        "flow-model",
	})

	got := s.Context()
	assert.Equal(t, "custom prompt", got.SystemPrompt)
	assert.Equal(t, []string{tools.NameGetSchema}, got.AvailableTools)
	assert.Equal(t, "flow-model", got.Model)
	assert.Equal(t, "context-graph", got.MCPServer)
}
