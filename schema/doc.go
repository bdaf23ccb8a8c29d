// Package schema caches the graph's label/relationship/property schema and
// renders the compact textual summary injected into agent system prompts.
//
// The cache is owned by a single Service value, guarded by a mutex, lazily
// populated on first read and refreshed only on explicit request. A failed
// refresh preserves the previous document: stale schema is always preferred
// over no schema.
package schema
