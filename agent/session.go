package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"github.com/contextgraph-ai/backend/llm"
	"github.com/contextgraph-ai/backend/tools"
)

// ErrNotConnected reports a query on a session that was never connected
// or was already closed. It signals a programming error, not a retryable
// condition.
var ErrNotConnected = errors.New("agent: session not connected")

// maxToolRounds bounds the model/tool loop of a single query so a model
// stuck requesting tools cannot spin forever.
const maxToolRounds = 10

// Dispatcher executes tool calls. tools.Registry satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) tools.Result
}

// SummarySource supplies the schema summary embedded in the default
// system prompt. schema.Service satisfies it.
type SummarySource interface {
	Summary(ctx context.Context) string
}

// ModelBuilder constructs a chat model for the given model identifier.
// Sessions call it once, at connect time.
type ModelBuilder func(ctx context.Context, modelID string) (model.ToolCallingChatModel, error)

// Options carries the per-session overrides, usually sourced from a Flow.
// Zero values mean defaults: the schema-grounded system prompt, the full
// tool set, and the configured model.
type Options struct {
	SystemPrompt string
	EnabledTools []string
	Model        string
}

// Session is a single agent conversation scope. Not safe for concurrent
// use; each request opens its own session.
type Session struct {
	dispatcher Dispatcher
	summaries  SummarySource
	build      ModelBuilder
	opts       Options
	logger     *slog.Logger

	chat         model.ToolCallingChatModel
	systemPrompt string
	modelID      string
	toolSet      []string
}

// Reply is the non-streaming query result.
type Reply struct {
	Response  string     `json:"response"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// NewSession builds a disconnected session. Connect must be called before
// Query or Stream.
func NewSession(dispatcher Dispatcher, summaries SummarySource, build ModelBuilder, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		dispatcher: dispatcher,
		summaries:  summaries,
		build:      build,
		opts:       opts,
		logger:     logger,
	}
}

// Connect resolves the system prompt, tool set, and model, and binds the
// tools to the chat model.
func (s *Session) Connect(ctx context.Context) error {
	prompt := strings.TrimSpace(s.opts.SystemPrompt)
	if prompt == "" {
		prompt = BuildSystemPrompt(s.summaries.Summary(ctx))
	}
	toolSet := s.opts.EnabledTools
	if len(toolSet) == 0 {
		toolSet = tools.AllNames
	}
	defs := tools.Definitions(s.opts.EnabledTools)

	base, err := s.build(ctx, s.opts.Model)
	if err != nil {
		return fmt.Errorf("agent: connecting: %w", err)
	}
	chat, err := base.WithTools(llm.ToolInfos(defs))
	if err != nil {
		return fmt.Errorf("agent: binding tools: %w", err)
	}

	s.chat = chat
	s.systemPrompt = prompt
	s.modelID = s.opts.Model
	s.toolSet = toolSet
	return nil
}

// Close releases the session. Safe to call on a never-connected session.
func (s *Session) Close() {
	s.chat = nil
}

// Context reports the resolved session configuration. Only valid after
// Connect.
func (s *Session) Context() Context {
	return Context{
		SystemPrompt:   s.systemPrompt,
		Model:          s.modelID,
		AvailableTools: s.toolSet,
		MCPServer:      "context-graph",
	}
}

// Query sends one message and blocks until the model produces a final
// answer, executing any tool calls it requests along the way.
func (s *Session) Query(ctx context.Context, message string, history []Message) (*Reply, error) {
	if s.chat == nil {
		return nil, ErrNotConnected
	}

	msgs := []*einoschema.Message{
		einoschema.SystemMessage(s.systemPrompt),
		einoschema.UserMessage(composeMessage(message, history)),
	}

	var text strings.Builder
	toolCalls := []ToolCall{}

	for round := 0; round < maxToolRounds; round++ {
		out, err := s.chat.Generate(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("agent: generate: %w", err)
		}
		text.WriteString(out.Content)
		if len(out.ToolCalls) == 0 {
			break
		}
		msgs = append(msgs, out)
		for _, tc := range out.ToolCalls {
			call, toolMsg := s.runTool(ctx, tc)
			toolCalls = append(toolCalls, call)
			msgs = append(msgs, toolMsg)
		}
	}

	return &Reply{Response: text.String(), ToolCalls: toolCalls}, nil
}

// Stream sends one message and emits events as the model responds. emit is
// called from the calling goroutine; returning an error from it aborts the
// stream. On success exactly one done event is emitted last.
func (s *Session) Stream(ctx context.Context, message string, history []Message, emit func(Event) error) error {
	if s.chat == nil {
		return ErrNotConnected
	}

	if err := emit(ContextEvent{Type: EventAgentContext, Context: s.Context()}); err != nil {
		return err
	}

	msgs := []*einoschema.Message{
		einoschema.SystemMessage(s.systemPrompt),
		einoschema.UserMessage(composeMessage(message, history)),
	}
	toolCalls := []ToolCall{}

	for round := 0; round < maxToolRounds; round++ {
		full, err := s.streamRound(ctx, msgs, emit)
		if err != nil {
			return err
		}
		if len(full.ToolCalls) == 0 {
			break
		}
		msgs = append(msgs, full)
		for _, tc := range full.ToolCalls {
			args := decodeArgs(tc.Function.Arguments)
			if err := emit(ToolUseEvent{Type: EventToolUse, Name: tc.Function.Name, Input: args}); err != nil {
				return err
			}
			call, toolMsg := s.runTool(ctx, tc)
			toolCalls = append(toolCalls, call)
			msgs = append(msgs, toolMsg)

			if err := emit(ToolResultEvent{
				Type:   EventToolResult,
				Name:   tc.Function.Name,
				Output: decodeOutput(toolMsg.Content),
			}); err != nil {
				return err
			}
		}
	}

	return emit(DoneEvent{Type: EventDone, ToolCalls: toolCalls})
}

// streamRound runs one model turn, emitting text deltas as they arrive,
// and returns the concatenated full message.
func (s *Session) streamRound(ctx context.Context, msgs []*einoschema.Message, emit func(Event) error) (*einoschema.Message, error) {
	sr, err := s.chat.Stream(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("agent: stream: %w", err)
	}
	return llm.Accumulate(sr, func(chunk *einoschema.Message) error {
		if chunk.Content == "" {
			return nil
		}
		return emit(TextEvent{Type: EventText, Content: chunk.Content})
	})
}

// runTool dispatches one tool call and shapes the result as a tool message
// for the next model turn.
func (s *Session) runTool(ctx context.Context, tc einoschema.ToolCall) (ToolCall, *einoschema.Message) {
	name := tc.Function.Name
	args := decodeArgs(tc.Function.Arguments)

	result := s.dispatcher.Dispatch(ctx, name, args)
	if result.IsError {
		s.logger.Warn("tool returned error", "tool", name)
	}
	return ToolCall{Name: name, Input: args}, einoschema.ToolMessage(result.Text(), tc.ID)
}

// decodeArgs parses tool-call arguments. Malformed argument JSON degrades
// to an empty map; the tool reports the missing fields.
func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

// decodeOutput best-effort parses a tool result payload. Unparseable
// payloads degrade to the raw text rather than failing the stream.
func decodeOutput(raw string) any {
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return raw
	}
	return out
}
