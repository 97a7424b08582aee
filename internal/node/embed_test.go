package node

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
)

func TestEmbedText(t *testing.T) {
	emb := &mockEmbedder{vec: []float64{0.1, 0.2, 0.3}}
	defs, d := standard(t, &mockService{}, Options{Embedder: emb})

	out, err := defs[TypeEmbedText].Process(context.Background(),
		rawData(t, map[string]any{"model": "text-embedding-3-small"}),
		port.Inputs{portText: port.String("hello")}, serverEnv)
	require.NoError(t, err)
	assert.Equal(t, port.Vector([]float64{0.1, 0.2, 0.3}), out[portEmbedding])
	assert.Equal(t, "hello", emb.lastText)
	assert.Equal(t, "text-embedding-3-small", emb.lastModel)
	assert.Zero(t, d.dials, "embedding never touches the vector database")
}

func TestEmbedText_StaticText(t *testing.T) {
	emb := &mockEmbedder{vec: []float64{1}}
	defs, _ := standard(t, &mockService{}, Options{Embedder: emb})

	_, err := defs[TypeEmbedText].Process(context.Background(),
		rawData(t, map[string]any{"text": "static", "useTextInput": false}), nil, serverEnv)
	require.NoError(t, err)
	assert.Equal(t, "static", emb.lastText)
	assert.Empty(t, emb.lastModel)
}

func TestEmbedText_Errors(t *testing.T) {
	t.Run("missing text", func(t *testing.T) {
		defs, _ := standard(t, &mockService{}, Options{Embedder: &mockEmbedder{}})

		_, err := defs[TypeEmbedText].Process(context.Background(), nil, port.Inputs{}, serverEnv)
		assert.ErrorIs(t, err, domain.ErrMissingInput)
	})

	t.Run("provider failure", func(t *testing.T) {
		providerErr := errors.New("rate limited")
		defs, _ := standard(t, &mockService{}, Options{Embedder: &mockEmbedder{err: providerErr}})

		_, err := defs[TypeEmbedText].Process(context.Background(), nil,
			port.Inputs{portText: port.String("hello")}, serverEnv)
		assert.ErrorIs(t, err, providerErr)
	})
}
