// Package vector layers semantic and hybrid similarity search over the
// graph's vector indexes.
//
// It wraps an OpenAI-compatible embeddings endpoint for single and batch
// generation, queries the prebuilt reasoning and description indexes, and
// combines semantic with structural (FastRP) scores using a weighted sum.
// No indexing or ranking is implemented here; the graph engine owns both.
package vector
