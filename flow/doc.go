// Package flow stores saved agent configurations: a named bundle of
// system prompt, enabled tool set, and model selection.
//
// Two interchangeable backends implement the same Store interface: an
// in-process map for tests and ephemeral deployments, and a Postgres
// table for durable ones. Slugs are recomputed from the name on every
// create and update.
package flow
