package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	embedder := NewMockEmbedder()

	a, err := embedder.GenerateEmbedding(context.Background(), "spiral")
	require.NoError(t, err)

	b, err := embedder.GenerateEmbedding(context.Background(), "spiral")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 4)

	empty, err := embedder.GenerateEmbedding(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, empty)
}
