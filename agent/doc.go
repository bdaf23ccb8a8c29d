// Package agent wraps a tool-calling chat model in an explicit session
// lifecycle: disconnected, connected, then any number of query or stream
// calls, then disconnected again.
//
// A session resolves its system prompt, model, and enabled tool set at
// construction time, optionally overridden by a Flow configuration.
// Streaming queries emit a tagged event sequence: one agent_context event,
// interleaved text, tool_use, and tool_result events, and exactly one
// terminal done event carrying the full tool-call list.
package agent
