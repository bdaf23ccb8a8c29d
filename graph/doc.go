// Package graph wraps the Neo4j driver for read-only exploration of the
// context graph.
//
// The package exposes the GraphData envelope ({nodes, relationships}) that
// every agent-facing tool returns, the property-slimming transform that
// bounds payload sizes before they reach the LLM context window, and a
// statement gate that rejects non-read Cypher.
//
// Every operation acquires a session scoped to one logical query and
// releases it deterministically. Nothing in this package mutates the graph;
// the only write paths in the repository live in package vector (embedding
// write-back).
package graph
