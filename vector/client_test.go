package vector

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineScores(t *testing.T) {
	assert.InDelta(t, 0.5, CombineScores(0.5, 0.5, DefaultSemanticWeight, DefaultStructuralWeight), 1e-9)
	assert.InDelta(t, 0.62, CombineScores(0.9, 0.2, 0.6, 0.4), 1e-9)
	assert.InDelta(t, 0.0, CombineScores(0, 0, 0.6, 0.4), 1e-9)
	// Weighting one side to zero ignores it.
	assert.InDelta(t, 0.9, CombineScores(0.9, 0.3, 1.0, 0.0), 1e-9)
}

type fixedEmbedder struct {
	vectors [][]float64
	texts   []string
}

func (f *fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.texts = texts
	return f.vectors[:len(texts)], nil
}

func TestEmbedBatch(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{0.1}, {0.2}}}
	c := NewClient(nil, emb, slog.New(slog.DiscardHandler))

	out, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1}, {0.2}}, out)
	assert.Equal(t, []string{"a", "b"}, emb.texts)
}

func TestEmbedSingle(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float64{{0.7, 0.3}}}
	c := NewClient(nil, emb, slog.New(slog.DiscardHandler))

	out, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.7, 0.3}, out)
}

func TestEmbedWithoutProvider(t *testing.T) {
	c := NewClient(nil, nil, slog.New(slog.DiscardHandler))
	_, err := c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEmbedder)
}
