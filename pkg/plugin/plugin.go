package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/logger"
	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
	"github.com/qdrant/rivet-plugin-qdrant/internal/registry"
	"github.com/qdrant/rivet-plugin-qdrant/internal/transport/openai"
	"github.com/qdrant/rivet-plugin-qdrant/internal/transport/qdrant"
)

type (
	// NodeType identifies a node.
	NodeType = node.Type
	// Executor names the environment running a node.
	Executor = node.Executor
	// Value is a typed port value.
	Value = port.Value
	// Inputs are the values bound to a node's input ports.
	Inputs = port.Inputs
	// Outputs are the values a node produced.
	Outputs = port.Outputs
	// Port describes an input or output port.
	Port = port.Definition
	// Descriptor summarizes a node with its default data.
	Descriptor = node.Descriptor
	// Info identifies the plugin and its settings.
	Info = registry.Descriptor
)

// Node types.
const (
	ListCollections  = node.TypeListCollections
	UpsertPoint      = node.TypeUpsertPoint
	SearchPoints     = node.TypeSearchPoints
	GetPoints        = node.TypeGetPoints
	ScrollPoints     = node.TypeScrollPoints
	DeletePoints     = node.TypeDeletePoints
	DeleteCollection = node.TypeDeleteCollection
	EmbedText        = node.TypeEmbedText
)

// Executors.
const (
	ExecutorNode    = node.ExecutorNode
	ExecutorBrowser = node.ExecutorBrowser
)

// Embedder turns text into a vector for the embedText node. An empty model
// selects the provider's default.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float64, error)
}

// Request is one node invocation.
type Request struct {
	// Data is the node's static data as JSON; nil uses the defaults.
	Data json.RawMessage
	// Inputs are the values bound to the node's input ports.
	Inputs Inputs
	// Executor must be ExecutorNode; other environments are rejected.
	Executor Executor
	// Settings override the plugin connection (qdrantUrl, qdrantApiKey).
	Settings map[string]string
}

// Plugin runs Qdrant nodes.
type Plugin struct {
	registry *registry.Registry
	settings map[string]string
	logger   *zap.Logger
	obs      *observer
}

// New creates a Plugin.
func New(opts ...Option) (*Plugin, error) {
	cfg := &pluginConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	log := nopIfNil(cfg.logger)

	coercion, err := point.ParseCoercion(cfg.idCoercion)
	if err != nil {
		return nil, fmt.Errorf("qdrant plugin: %w", err)
	}

	dial := cfg.dial
	if dial == nil {
		dial = func(c node.Connection) node.Service {
			return qdrant.New(qdrant.Config{URL: c.URL, APIKey: c.APIKey, Logger: log})
		}
	}

	var embedder node.Embedder
	switch {
	case cfg.embedder != nil:
		embedder = cfg.embedder
	case cfg.openAI != nil:
		embedder = openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.openAI.apiKey,
			BaseURL:    cfg.openAI.baseURL,
			Model:      cfg.openAI.model,
			Dimensions: cfg.openAI.dimensions,
			Logger:     log,
		})
	}

	reg, err := registry.Build(registry.Deps{
		Dial:          dial,
		Embedder:      embedder,
		IDCoercion:    coercion,
		StrictFilters: cfg.strictFilters,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant plugin: %w", err)
	}

	obs, err := newObserver(cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	settings := map[string]string{}
	if cfg.url != "" {
		settings[registry.SettingURL] = cfg.url
	}
	if cfg.apiKey != "" {
		settings[registry.SettingAPIKey] = cfg.apiKey
	}

	return &Plugin{registry: reg, settings: settings, logger: log, obs: obs}, nil
}

// Info returns the plugin descriptor and its settings.
func (p *Plugin) Info() Info { return registry.Plugin }

// Nodes returns the available node types in lexical order.
func (p *Plugin) Nodes() []NodeType { return p.registry.Types() }

// Describe returns a node's default data and ports.
func (p *Plugin) Describe(typ NodeType) (Descriptor, error) {
	def, err := p.registry.Get(typ)
	if err != nil {
		return Descriptor{}, err //nolint:wrapcheck // sentinel already carries the type
	}
	return def.Describe() //nolint:wrapcheck // node errors are self-describing
}

// Ports returns the input and output ports a node exposes for the given data.
func (p *Plugin) Ports(typ NodeType, data json.RawMessage) (inputs, outputs []Port, err error) {
	def, err := p.registry.Get(typ)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // sentinel already carries the type
	}
	if inputs, err = def.Inputs(data); err != nil {
		return nil, nil, err //nolint:wrapcheck // node errors are self-describing
	}
	if outputs, err = def.Outputs(data); err != nil {
		return nil, nil, err //nolint:wrapcheck // node errors are self-describing
	}
	return inputs, outputs, nil
}

// Process executes one node. Failures are returned as errors and never as
// outputs; match them with errors.Is against the Err* values.
func (p *Plugin) Process(ctx context.Context, typ NodeType, req Request) (out Outputs, err error) {
	start := time.Now()
	defer func() { p.obs.observe(string(typ), start, err) }()

	def, err := p.registry.Get(typ)
	if err != nil {
		return nil, err //nolint:wrapcheck // sentinel already carries the type
	}

	settings := maps.Clone(p.settings)
	for k, v := range req.Settings {
		if v != "" {
			settings[k] = v
		}
	}
	env := node.Env{
		Executor:   req.Executor,
		Connection: registry.Plugin.Connection(settings),
	}

	ctx = logger.ContextWithLogger(ctx, p.logger)
	return def.Process(ctx, req.Data, req.Inputs, env) //nolint:wrapcheck // node errors are self-describing
}
