package node

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/request"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/vector"
	"github.com/qdrant/rivet-plugin-qdrant/internal/logger"
)

// defaultScrollLimit is the page size of a freshly created scrollPoints node.
const defaultScrollLimit = 10

// UpsertPointData is the static data of upsertPoint.
type UpsertPointData struct {
	CollectionData
	ID              string         `json:"id"`
	UseIDInput      bool           `json:"useIdInput"`
	VectorName      string         `json:"vectorName"`
	Payload         Serialized     `json:"payload"`
	UsePayloadInput bool           `json:"usePayloadInput"`
	IDCoercion      point.Coercion `json:"idCoercion,omitempty"`
}

type upsertPoint struct{ base }

func (upsertPoint) Create() UpsertPointData { return UpsertPointData{Payload: "{}"} }

func (upsertPoint) Inputs(d UpsertPointData) []port.Definition {
	inputs := append([]port.Definition{}, d.inputs()...)
	if d.UseIDInput {
		inputs = append(inputs, port.Definition{ID: portID, DataType: port.TypeString, Title: "ID"})
	}
	inputs = append(inputs, embeddingInput())
	if d.UsePayloadInput {
		inputs = append(inputs, port.Definition{ID: portPayload, DataType: port.TypeObject, Title: "Payload"})
	}
	return inputs
}

func (upsertPoint) Outputs(UpsertPointData) []port.Definition {
	return []port.Definition{{ID: portStatus, DataType: port.TypeString, Title: "Status"}}
}

func (n upsertPoint) Process(ctx context.Context, d UpsertPointData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}
	idText, err := Bind(portID, d.ID, d.UseIDInput).Resolve(inputs, port.AsString)
	if err != nil {
		return nil, err
	}
	vec, err := resolveVector(inputs)
	if err != nil {
		return nil, err
	}
	payload, err := ResolveObject(Bind(portPayload, d.Payload, d.UsePayloadInput), inputs, domain.ErrInvalidPayload)
	if err != nil {
		return nil, err
	}

	coercion := n.coercion
	if d.IDCoercion != "" {
		if coercion, err = point.ParseCoercion(string(d.IDCoercion)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidNodeData, err)
		}
	}
	id := coercion.Apply(idText)
	if id.IsZero() {
		id = point.NewID()
	}

	logger.FromContext(ctx).Debug("upserting point",
		zap.String("collection", collection),
		zap.Stringer("id", id),
		zap.String("vector_name", d.VectorName),
	)
	status, err := n.dial(env.Connection).UpsertPoint(ctx, request.Upsert{
		Collection: collection,
		ID:         id,
		Vector:     vector.New(d.VectorName, vec),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert point into %q: %w", collection, err)
	}
	return port.Outputs{portStatus: port.String(status)}, nil
}

// SearchPointsData is the static data of searchPoints. Nil Limit and
// ScoreThreshold leave the defaults to the service.
type SearchPointsData struct {
	CollectionData
	VectorName     string     `json:"vectorName"`
	Limit          *int       `json:"limit,omitempty"`
	ScoreThreshold *float64   `json:"scoreThreshold,omitempty"`
	Filter         Serialized `json:"filter"`
	UseFilterInput bool       `json:"useFilterInput"`
}

type searchPoints struct{ base }

func (searchPoints) Create() SearchPointsData { return SearchPointsData{Filter: "{}"} }

func (searchPoints) Inputs(d SearchPointsData) []port.Definition {
	inputs := append([]port.Definition{}, d.inputs()...)
	inputs = append(inputs, embeddingInput())
	if d.UseFilterInput {
		inputs = append(inputs, port.Definition{ID: portFilter, DataType: port.TypeObject, Title: "Search Filter"})
	}
	return inputs
}

func (searchPoints) Outputs(SearchPointsData) []port.Definition { return pointsOutput() }

func (n searchPoints) Process(ctx context.Context, d SearchPointsData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}
	vec, err := resolveVector(inputs)
	if err != nil {
		return nil, err
	}
	f, err := n.filter(Bind(portFilter, d.Filter, d.UseFilterInput), inputs)
	if err != nil {
		return nil, err
	}

	hits, err := n.dial(env.Connection).SearchPoints(ctx, request.Search{
		Collection:     collection,
		Vector:         vector.New(d.VectorName, vec),
		Filter:         f,
		Limit:          d.Limit,
		ScoreThreshold: d.ScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("search points in %q: %w", collection, err)
	}
	return port.Outputs{portPoints: port.ObjectArray(point.Objects(hits))}, nil
}

// GetPointsData is the static data of getPoints. IDs holds strings and numbers.
type GetPointsData struct {
	CollectionData
	IDs         []any `json:"ids"`
	UseIDsInput bool  `json:"useIdsInput"`
}

type getPoints struct{ base }

func (getPoints) Create() GetPointsData { return GetPointsData{IDs: []any{}} }

func (getPoints) Inputs(d GetPointsData) []port.Definition {
	inputs := append([]port.Definition{}, d.inputs()...)
	if d.UseIDsInput {
		inputs = append(inputs, port.Definition{ID: portIDs, DataType: port.TypeAnyArray, Title: "IDs"})
	}
	return inputs
}

func (getPoints) Outputs(GetPointsData) []port.Definition { return pointsOutput() }

func (n getPoints) Process(ctx context.Context, d GetPointsData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}
	raw, err := Bind(portIDs, d.IDs, d.UseIDsInput).Resolve(inputs, port.AsSlice)
	if err != nil {
		return nil, err
	}
	ids, err := point.ParseIDs(raw)
	if err != nil {
		return nil, err
	}

	recs, err := n.dial(env.Connection).GetPoints(ctx, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("get points from %q: %w", collection, err)
	}
	return port.Outputs{portPoints: port.ObjectArray(point.Objects(recs))}, nil
}

// ScrollPointsData is the static data of scrollPoints. Offset is a point ID
// (string or number) to start from; nil or "" starts at the beginning.
type ScrollPointsData struct {
	CollectionData
	Limit          *int       `json:"limit,omitempty"`
	Offset         any        `json:"offset,omitempty"`
	Filter         Serialized `json:"filter"`
	UseFilterInput bool       `json:"useFilterInput"`
}

type scrollPoints struct{ base }

func (scrollPoints) Create() ScrollPointsData {
	limit := defaultScrollLimit
	return ScrollPointsData{Limit: &limit}
}

func (scrollPoints) Inputs(d ScrollPointsData) []port.Definition {
	inputs := append([]port.Definition{}, d.inputs()...)
	if d.UseFilterInput {
		inputs = append(inputs, port.Definition{ID: portFilter, DataType: port.TypeObject, Title: "Scroll Filter"})
	}
	return inputs
}

func (scrollPoints) Outputs(ScrollPointsData) []port.Definition { return pointsOutput() }

func (n scrollPoints) Process(ctx context.Context, d ScrollPointsData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}
	offset, err := scrollOffset(d.Offset)
	if err != nil {
		return nil, err
	}
	f, err := n.filter(Bind(portFilter, d.Filter, d.UseFilterInput), inputs)
	if err != nil {
		return nil, err
	}

	page, err := n.dial(env.Connection).ScrollPoints(ctx, request.Scroll{
		Collection: collection,
		Filter:     f,
		Limit:      d.Limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("scroll points in %q: %w", collection, err)
	}
	if page.NextOffset != nil {
		logger.FromContext(ctx).Debug("scroll page has more points", zap.Stringer("next_offset", *page.NextOffset))
	}
	return port.Outputs{portPoints: port.ObjectArray(point.Objects(page.Points))}, nil
}

func scrollOffset(v any) (*point.ID, error) {
	if v == nil || v == "" {
		return nil, nil
	}
	id, err := point.ParseID(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T is neither string nor number", domain.ErrInvalidOffset, v)
	}
	return &id, nil
}

// DeletePointsData is the static data of deletePoints.
type DeletePointsData struct {
	CollectionData
	Filter         Serialized `json:"filter"`
	UseFilterInput bool       `json:"useFilterInput"`
}

type deletePoints struct{ base }

func (deletePoints) Create() DeletePointsData { return DeletePointsData{Filter: "{}"} }

func (deletePoints) Inputs(d DeletePointsData) []port.Definition {
	inputs := append([]port.Definition{}, d.inputs()...)
	if d.UseFilterInput {
		inputs = append(inputs, port.Definition{ID: portFilter, DataType: port.TypeObject, Title: "Filter"})
	}
	return inputs
}

func (deletePoints) Outputs(DeletePointsData) []port.Definition {
	return []port.Definition{{ID: portStatus, DataType: port.TypeString, Title: "Status"}}
}

func (n deletePoints) Process(ctx context.Context, d DeletePointsData, inputs port.Inputs, env Env) (port.Outputs, error) {
	collection, err := d.resolve(inputs)
	if err != nil {
		return nil, err
	}
	f, err := n.filter(Bind(portFilter, d.Filter, d.UseFilterInput), inputs)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("deleting points", zap.String("collection", collection), zap.Int("filter_clauses", len(f)))
	status, err := n.dial(env.Connection).DeletePoints(ctx, collection, f)
	if err != nil {
		return nil, fmt.Errorf("delete points from %q: %w", collection, err)
	}
	return port.Outputs{portStatus: port.String(status)}, nil
}
