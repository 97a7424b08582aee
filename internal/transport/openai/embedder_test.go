package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
)

func embeddingServer(t *testing.T, vec []float32, gotModel *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if gotModel != nil {
			*gotModel = req.Model
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]any{
				{"object": "embedding", "embedding": vec, "index": 0},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_Embed(t *testing.T) {
	srv := embeddingServer(t, []float32{0.5, 0.25}, nil)
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-3-small", Logger: zap.NewNop()})

	vec, err := emb.Embed(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, vec)
	assert.Equal(t, "text-embedding-3-small", emb.Model())
}

func TestEmbedder_ModelOverride(t *testing.T) {
	var got string
	srv := embeddingServer(t, []float32{1}, &got)
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "default-model"})

	_, err := emb.Embed(context.Background(), "hello", "other-model")
	require.NoError(t, err)
	assert.Equal(t, "other-model", got)
}

func TestEmbedder_APIErrorWrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), "hello", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
	assert.Contains(t, err.Error(), "bad key")
}

func TestExtractDetail(t *testing.T) {
	assert.Equal(t, "quota", extractDetail([]byte(`{"detail":"quota"}`)))
	assert.Empty(t, extractDetail([]byte(`not json`)))
}
