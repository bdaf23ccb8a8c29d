// Package suggest generates clickable example questions from the current
// graph schema.
//
// It calls an Anthropic-compatible messages endpoint directly and parses
// a JSON array out of whatever the model returns. This is the one fully
// fault-tolerant path in the backend: every failure mode, from a missing
// API key to an unusable response, resolves to a fixed default question
// set and never surfaces to the caller.
package suggest
