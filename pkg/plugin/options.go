package plugin

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
)

// Option configures the Plugin.
type Option interface {
	apply(*pluginConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*pluginConfig)

func (f optionFunc) apply(c *pluginConfig) { f(c) }

type pluginConfig struct {
	url    string
	apiKey string

	idCoercion    string
	strictFilters bool

	embedder Embedder
	openAI   *openAIConfig

	dial node.Dialer

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

type openAIConfig struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
}

// WithQdrant sets the default connection used when a call carries no
// qdrantUrl / qdrantApiKey settings of its own. Without it the
// QDRANT_URL and QDRANT_API_KEY environment variables apply, then
// http://localhost:6333.
func WithQdrant(url, apiKey string) Option {
	return optionFunc(func(c *pluginConfig) {
		c.url = url
		c.apiKey = apiKey
	})
}

// WithIDCoercion selects how textual point identifiers are converted:
// "numeric" (default), "canonical" or "never".
func WithIDCoercion(mode string) Option {
	return optionFunc(func(c *pluginConfig) {
		c.idCoercion = mode
	})
}

// WithStrictFilters rejects filters whose top level is not a must / should /
// must_not / min_should clause before any request is sent.
func WithStrictFilters() Option {
	return optionFunc(func(c *pluginConfig) {
		c.strictFilters = true
	})
}

// WithEmbedder enables the embedText node with a custom provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *pluginConfig) {
		c.embedder = e
	})
}

// WithOpenAIEmbedder enables the embedText node backed by an OpenAI-compatible
// embeddings endpoint. An empty baseURL selects api.openai.com.
func WithOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) Option {
	return optionFunc(func(c *pluginConfig) {
		c.openAI = &openAIConfig{apiKey: apiKey, baseURL: baseURL, model: model, dimensions: dimensions}
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *pluginConfig) {
		c.logger = l
	})
}

// WithPrometheus registers plugin metrics (invocation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *pluginConfig) {
		c.metricsReg = reg
	})
}

// withDialer replaces the REST client factory.
func withDialer(d node.Dialer) Option {
	return optionFunc(func(c *pluginConfig) {
		c.dial = d
	})
}
