package node

import (
	"context"
	"fmt"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
)

// EmbedTextData is the static data of embedText. An empty Model uses the
// embedder's configured model.
type EmbedTextData struct {
	Text         string `json:"text"`
	UseTextInput bool   `json:"useTextInput"`
	Model        string `json:"model"`
}

// embedText produces the vector that upsertPoint and searchPoints consume.
type embedText struct {
	embedder Embedder
}

func (embedText) Create() EmbedTextData { return EmbedTextData{UseTextInput: true} }

func (embedText) Inputs(d EmbedTextData) []port.Definition {
	if !d.UseTextInput {
		return []port.Definition{}
	}
	return []port.Definition{{ID: portText, DataType: port.TypeString, Title: "Text"}}
}

func (embedText) Outputs(EmbedTextData) []port.Definition {
	return []port.Definition{{ID: portEmbedding, DataType: port.TypeVector, Title: "Embedding"}}
}

func (n embedText) Process(ctx context.Context, d EmbedTextData, inputs port.Inputs, _ Env) (port.Outputs, error) {
	text, err := Bind(portText, d.Text, d.UseTextInput).Resolve(inputs, port.AsString)
	if err != nil {
		return nil, err
	}
	vec, err := n.embedder.Embed(ctx, text, d.Model)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return port.Outputs{portEmbedding: port.Vector(vec)}, nil
}
