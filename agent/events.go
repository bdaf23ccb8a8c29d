package agent

// EventType discriminates streaming events.
type EventType string

const (
	EventAgentContext EventType = "agent_context"
	EventText         EventType = "text"
	EventToolUse      EventType = "tool_use"
	EventToolResult   EventType = "tool_result"
	EventDone         EventType = "done"
)

// Event is the closed union of streaming event kinds. Concrete types are
// ContextEvent, TextEvent, ToolUseEvent, ToolResultEvent, and DoneEvent.
type Event interface {
	Kind() EventType
}

// Context describes the resolved session configuration, emitted once at
// the start of every stream for transparency.
type Context struct {
	SystemPrompt   string   `json:"system_prompt"`
	Model          string   `json:"model"`
	AvailableTools []string `json:"available_tools"`
	MCPServer      string   `json:"mcp_server"`
}

// ContextEvent is the first event of every stream.
type ContextEvent struct {
	Type    EventType `json:"type"`
	Context Context   `json:"context"`
}

func (ContextEvent) Kind() EventType { return EventAgentContext }

// TextEvent carries one assistant text delta.
type TextEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

func (TextEvent) Kind() EventType { return EventText }

// ToolCall records one tool invocation the assistant requested.
type ToolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolUseEvent announces a tool invocation before it runs.
type ToolUseEvent struct {
	Type  EventType      `json:"type"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func (ToolUseEvent) Kind() EventType { return EventToolUse }

// ToolResultEvent carries a tool's output, resolved back to the tool name
// via the call identifier. Output is the JSON-decoded payload when the
// result parses, otherwise the raw text.
type ToolResultEvent struct {
	Type   EventType `json:"type"`
	Name   string    `json:"name"`
	Output any       `json:"output"`
}

func (ToolResultEvent) Kind() EventType { return EventToolResult }

// DoneEvent terminates a stream. ToolCalls lists every tool invocation in
// order; it is never nil.
type DoneEvent struct {
	Type      EventType  `json:"type"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

func (DoneEvent) Kind() EventType { return EventDone }
