// Package node implements the workflow nodes that wrap Qdrant operations.
//
// Every node has the same shape: typed static data with "use input" toggles,
// input ports derived from those toggles, a single output port, and a Process
// step that resolves parameters, dials a fresh client, performs one call and
// projects the answer onto the output port.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/filter"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/request"
	"github.com/qdrant/rivet-plugin-qdrant/internal/logger"
	"github.com/qdrant/rivet-plugin-qdrant/internal/metrics"
)

// Type is the stable identifier of a node under which the host registers it.
type Type string

// Node types.
const (
	TypeListCollections  Type = "listCollections"
	TypeUpsertPoint      Type = "upsertPoint"
	TypeSearchPoints     Type = "searchPoints"
	TypeGetPoints        Type = "getPoints"
	TypeScrollPoints     Type = "scrollPoints"
	TypeDeletePoints     Type = "deletePoints"
	TypeDeleteCollection Type = "deleteCollection"
	TypeEmbedText        Type = "embedText"
)

// Executor names the host environment running a node.
type Executor string

const (
	// ExecutorNode is the host's server-side executor, the only one with network access.
	ExecutorNode Executor = "nodejs"
	// ExecutorBrowser is the host's in-editor executor.
	ExecutorBrowser Executor = "browser"
)

// Connection locates the Qdrant service for one invocation.
type Connection struct {
	URL    string
	APIKey string
}

// Env is the runtime context the host supplies with each invocation.
type Env struct {
	Executor   Executor
	Connection Connection
}

// Service is the Qdrant client contract the nodes call.
type Service interface {
	ListCollections(ctx context.Context) ([]string, error)
	UpsertPoint(ctx context.Context, req request.Upsert) (string, error)
	SearchPoints(ctx context.Context, req request.Search) ([]point.Scored, error)
	GetPoints(ctx context.Context, collection string, ids []point.ID) ([]point.Record, error)
	ScrollPoints(ctx context.Context, req request.Scroll) (request.Page, error)
	DeletePoints(ctx context.Context, collection string, f filter.Filter) (string, error)
	DeleteCollection(ctx context.Context, collection string) (bool, error)
}

// Dialer builds a Service for one invocation. Services are never shared
// between invocations.
type Dialer func(conn Connection) Service

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float64, error)
}

// Options configure the standard node set.
type Options struct {
	Dial          Dialer
	Embedder      Embedder
	IDCoercion    point.Coercion
	StrictFilters bool
}

// Impl is a typed node implementation. D is the node's static data.
type Impl[D any] interface {
	Create() D
	Inputs(data D) []port.Definition
	Outputs(data D) []port.Definition
	Process(ctx context.Context, data D, inputs port.Inputs, env Env) (port.Outputs, error)
}

// Definition is a node implementation with its data type erased, ready for
// a registry.
type Definition struct {
	typ     Type
	title   string
	create  func() any
	inputs  func(raw json.RawMessage) ([]port.Definition, error)
	outputs func(raw json.RawMessage) ([]port.Definition, error)
	process func(ctx context.Context, raw json.RawMessage, inputs port.Inputs, env Env) (port.Outputs, error)
}

// Descriptor is the host-facing summary of a node with default data.
type Descriptor struct {
	Type    Type              `json:"type"`
	Title   string            `json:"title"`
	Data    any               `json:"data"`
	Inputs  []port.Definition `json:"inputs"`
	Outputs []port.Definition `json:"outputs"`
}

// Define erases the data type of impl.
func Define[D any](typ Type, title string, impl Impl[D]) Definition {
	decode := func(raw json.RawMessage) (D, error) {
		data := impl.Create()
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return data, nil
		}
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return data, fmt.Errorf("%w: %s: %w", domain.ErrInvalidNodeData, typ, err)
		}
		return data, nil
	}

	return Definition{
		typ:    typ,
		title:  title,
		create: func() any { return impl.Create() },
		inputs: func(raw json.RawMessage) ([]port.Definition, error) {
			data, err := decode(raw)
			if err != nil {
				return nil, err
			}
			return impl.Inputs(data), nil
		},
		outputs: func(raw json.RawMessage) ([]port.Definition, error) {
			data, err := decode(raw)
			if err != nil {
				return nil, err
			}
			return impl.Outputs(data), nil
		},
		process: func(ctx context.Context, raw json.RawMessage, inputs port.Inputs, env Env) (_ port.Outputs, err error) {
			start := time.Now()
			log := logger.FromContext(ctx).With(zap.String("node", string(typ)))
			defer func() {
				metrics.ObserveNode(string(typ), start, err)
				if err != nil {
					log.Warn("node failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
				} else {
					log.Debug("node completed", zap.Duration("duration", time.Since(start)))
				}
			}()

			if env.Executor != ExecutorNode {
				return nil, fmt.Errorf("%w: %s requires the %q executor, got %q",
					domain.ErrEnvironmentUnsupported, typ, ExecutorNode, env.Executor)
			}
			data, err := decode(raw)
			if err != nil {
				return nil, err
			}
			return impl.Process(logger.ContextWithLogger(ctx, log), data, inputs, env)
		},
	}
}

// Type returns the node type.
func (d Definition) Type() Type { return d.typ }

// Title returns the display title.
func (d Definition) Title() string { return d.title }

// Create returns fresh default static data.
func (d Definition) Create() any { return d.create() }

// Inputs returns the input ports for the given static data.
func (d Definition) Inputs(raw json.RawMessage) ([]port.Definition, error) { return d.inputs(raw) }

// Outputs returns the output ports for the given static data.
func (d Definition) Outputs(raw json.RawMessage) ([]port.Definition, error) { return d.outputs(raw) }

// Process runs one invocation. The executor is checked before anything else,
// so an unsupported environment never reaches the network.
func (d Definition) Process(ctx context.Context, raw json.RawMessage, inputs port.Inputs, env Env) (port.Outputs, error) {
	return d.process(ctx, raw, inputs, env)
}

// Describe returns the descriptor for default data.
func (d Definition) Describe() (Descriptor, error) {
	data := d.create()
	raw, err := json.Marshal(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("marshal %s defaults: %w", d.typ, err)
	}
	inputs, err := d.inputs(raw)
	if err != nil {
		return Descriptor{}, err
	}
	outputs, err := d.outputs(raw)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Type: d.typ, Title: d.title, Data: data, Inputs: inputs, Outputs: outputs}, nil
}

// Standard returns the definitions of every node the options can support.
// embedText is only included when an embedder is configured.
func Standard(opts Options) []Definition {
	coercion := opts.IDCoercion
	if coercion == "" {
		coercion = point.CoercionNumeric
	}
	b := base{dial: opts.Dial, coercion: coercion, strict: opts.StrictFilters}

	defs := []Definition{
		Define[ListCollectionsData](TypeListCollections, "List Collections", listCollections{b}),
		Define[UpsertPointData](TypeUpsertPoint, "Upsert Point", upsertPoint{b}),
		Define[SearchPointsData](TypeSearchPoints, "Search Points", searchPoints{b}),
		Define[GetPointsData](TypeGetPoints, "Get Points", getPoints{b}),
		Define[ScrollPointsData](TypeScrollPoints, "Scroll Points", scrollPoints{b}),
		Define[DeletePointsData](TypeDeletePoints, "Delete Points", deletePoints{b}),
		Define[DeleteCollectionData](TypeDeleteCollection, "Delete Collection", deleteCollection{b}),
	}
	if opts.Embedder != nil {
		defs = append(defs, Define[EmbedTextData](TypeEmbedText, "Embed Text", embedText{embedder: opts.Embedder}))
	}
	return defs
}

// base carries what every Qdrant node shares.
type base struct {
	dial     Dialer
	coercion point.Coercion
	strict   bool
}

func (b base) filter(binding Binding[Serialized], inputs port.Inputs) (filter.Filter, error) {
	f, err := ResolveObject(binding, inputs, domain.ErrInvalidFilter)
	if err != nil {
		return nil, err
	}
	if b.strict {
		if err := filter.Validate(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Port names shared across nodes.
const (
	portCollectionName  port.ID = "collectionName"
	portCollectionNames port.ID = "collectionNames"
	portID              port.ID = "id"
	portIDs             port.ID = "ids"
	portEmbedding       port.ID = "embedding"
	portPayload         port.ID = "payload"
	portFilter          port.ID = "filter"
	portPoints          port.ID = "points"
	portStatus          port.ID = "status"
	portText            port.ID = "text"
)

// CollectionData is embedded by every node that targets a collection.
type CollectionData struct {
	CollectionName         string `json:"collectionName"`
	UseCollectionNameInput bool   `json:"useCollectionNameInput"`
}

func (c CollectionData) binding() Binding[string] {
	return Bind(portCollectionName, c.CollectionName, c.UseCollectionNameInput)
}

func (c CollectionData) inputs() []port.Definition {
	if !c.UseCollectionNameInput {
		return nil
	}
	return []port.Definition{{ID: portCollectionName, DataType: port.TypeString, Title: "Collection Name"}}
}

func (c CollectionData) resolve(inputs port.Inputs) (string, error) {
	return c.binding().Resolve(inputs, port.AsString)
}

func resolveVector(inputs port.Inputs) ([]float64, error) {
	v, ok := inputs.Lookup(portEmbedding)
	if !ok {
		return nil, domain.NewMissingInput(string(portEmbedding))
	}
	vec, err := port.AsVector(v)
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", portEmbedding, err)
	}
	return vec, nil
}

func embeddingInput() port.Definition {
	return port.Definition{ID: portEmbedding, DataType: port.TypeVector, Title: "Embedding"}
}

func pointsOutput() []port.Definition {
	return []port.Definition{{ID: portPoints, DataType: port.TypeObjectArray, Title: "Points"}}
}
