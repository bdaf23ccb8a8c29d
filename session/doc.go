// Package session persists chat transcripts keyed by session id, so a
// client can reconnect and replay its conversation history.
//
// Two backends share one Store interface: an in-process map and a Redis
// list with a sliding TTL. History order is append order.
package session
