package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/contextgraph-ai/backend/config"
)

// ErrNoEmbedder reports embedding use without a configured provider.
var ErrNoEmbedder = errors.New("vector: embeddings API key not configured")

// NewEmbedder builds the embeddings client. Returns nil without error when
// no API key is configured; callers get ErrNoEmbedder on first use.
func NewEmbedder(ctx context.Context, cfg config.Embeddings) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	dims := cfg.Dimensions
	emb, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("vector: creating embedder: %w", err)
	}
	return emb, nil
}

// Embed generates one embedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch generates embeddings for several texts in one call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if c.embedder == nil {
		return nil, ErrNoEmbedder
	}
	out, err := c.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vector: embedding: %w", err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("vector: got %d embeddings for %d texts", len(out), len(texts))
	}
	return out, nil
}
