// Package tools implements the closed set of graph query tools exposed to
// the language-model agent.
//
// Every tool is a pure request/response operation dispatched by name
// through a Registry. Results use a uniform content-block envelope: a list
// of text blocks plus an error flag, so the agent runtime never sees a raw
// error from a tool call. Graph payloads are slimmed before serialization
// to bound their size in the model context window.
package tools
