package node

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/logger"
)

// ListCollectionsData is the (empty) static data of listCollections.
type ListCollectionsData struct{}

type listCollections struct{ base }

func (listCollections) Create() ListCollectionsData { return ListCollectionsData{} }

func (listCollections) Inputs(ListCollectionsData) []port.Definition { return []port.Definition{} }

func (listCollections) Outputs(ListCollectionsData) []port.Definition {
	return []port.Definition{{
		ID:       portCollectionNames,
		DataType: port.TypeStringArray,
		Title:    "Collection Names",
		Default:  []string{},
	}}
}

func (n listCollections) Process(ctx context.Context, _ ListCollectionsData, _ port.Inputs, env Env) (port.Outputs, error) {
	names, err := n.dial(env.Connection).ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return port.Outputs{portCollectionNames: port.StringArray(names)}, nil
}

// DeleteCollectionData is the static data of deleteCollection.
type DeleteCollectionData struct {
	CollectionData
}

type deleteCollection struct{ base }

func (deleteCollection) Create() DeleteCollectionData { return DeleteCollectionData{} }

func (deleteCollection) Inputs(d DeleteCollectionData) []port.Definition {
	return append([]port.Definition{}, d.inputs()...)
}

func (deleteCollection) Outputs(DeleteCollectionData) []port.Definition {
	return []port.Definition{{ID: portStatus, DataType: port.TypeBoolean, Title: "Status"}}
}

func (n deleteCollection) Process(ctx context.Context, d DeleteCollectionData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("deleting collection", zap.String("collection", collection))
	ok, err := n.dial(env.Connection).DeleteCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("delete collection %q: %w", collection, err)
	}
	return port.Outputs{portStatus: port.Boolean(ok)}, nil
}
