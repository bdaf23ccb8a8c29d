// Package llm constructs the chat model used by agent sessions and the
// tool schemas handed to it.
//
// Models are built through OpenAI-compatible endpoints, so the same code
// path serves Anthropic-style proxies, DeepSeek, and OpenAI itself; model
// selection keys off the configured base URL when no explicit model is
// requested.
package llm
