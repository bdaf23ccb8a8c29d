// Package serve is the HTTP surface of the backend: chat (JSON and SSE),
// flow CRUD, suggestions, schema access, session transcripts, and vector
// search, on a chi router with CORS from configuration.
//
// Handlers translate the error taxonomy onto status codes: not-found
// conditions map to 404, validation failures to 400, upstream failures to
// 502. Tool-level failures never surface here; the tool layer converts
// them into error-flagged payloads before the model or client sees them.
package serve
