// Package chi exposes the node registry over HTTP so that a workflow host
// running outside the Go process can list, configure and execute nodes.
package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
	"github.com/qdrant/rivet-plugin-qdrant/internal/registry"
	"github.com/qdrant/rivet-plugin-qdrant/internal/version"
)

// maxBodyBytes bounds node data plus bound inputs (vectors included).
const maxBodyBytes = 16 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest             = "bad_request"
	CodeBodyTooLarge           = "body_too_large"
	CodeUnauthorized           = "unauthorized"
	CodeMissingInput           = "missing_input"
	CodeInvalidInput           = "invalid_input"
	CodeEnvironmentUnsupported = "environment_unsupported"
	CodeNodeNotFound           = "node_not_found"
	CodeServiceError           = "service_error"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeInternalError          = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Port    string `json:"port,omitempty"`
}

// ProcessRequest is the body of POST /nodes/{type}/process.
type ProcessRequest struct {
	Data     json.RawMessage   `json:"data"`
	Inputs   port.Inputs       `json:"inputs"`
	Executor node.Executor     `json:"executor"`
	Config   map[string]string `json:"config"`
}

// ProcessResponse is the body of a successful node execution.
type ProcessResponse struct {
	Outputs port.Outputs `json:"outputs"`
}

// PortsResponse lists the ports of a node for the given data.
type PortsResponse struct {
	Inputs  []port.Definition `json:"inputs"`
	Outputs []port.Definition `json:"outputs"`
}

// PluginResponse is the body of GET /plugin.
type PluginResponse struct {
	registry.Descriptor
	Version string      `json:"version"`
	Nodes   []node.Type `json:"nodes"`
}

type dataRequest struct {
	Data json.RawMessage `json:"data"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the node registry.
type Server struct {
	registry      *registry.Registry
	plugin        registry.Descriptor
	settings      map[string]string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the host bridge. settings are the host-level plugin
// settings (qdrantUrl, qdrantApiKey); a process request may override them.
func NewServer(reg *registry.Registry, settings map[string]string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry: reg,
		plugin:   registry.Plugin,
		settings: maps.Clone(settings),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		missingInputHandler,
		serviceErrorHandler,
		sentinelHandler(domain.ErrUnknownNode, http.StatusNotFound, CodeNodeNotFound),
		sentinelHandler(domain.ErrEnvironmentUnsupported, http.StatusPreconditionFailed, CodeEnvironmentUnsupported),
		sentinelHandler(domain.ErrInvalidNodeData, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrInvalidPayload, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrInvalidIdentifier, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrInvalidOffset, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrInvalidVector, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// Mount registers the routes on r.
func (s *Server) Mount(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/plugin", s.GetPlugin)
	r.Route("/nodes", func(r gochi.Router) {
		r.Get("/", s.ListNodes)
		r.Post("/{type}", s.CreateNode)
		r.Post("/{type}/inputs", s.NodeInputs)
		r.Post("/{type}/process", s.ProcessNode)
	})
}

// Handler returns a bare router with the routes mounted.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	s.Mount(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// GetPlugin handles GET /plugin.
func (s *Server) GetPlugin(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PluginResponse{
		Descriptor: s.plugin,
		Version:    version.String(),
		Nodes:      s.registry.Types(),
	})
}

// ListNodes handles GET /nodes.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	descs, err := s.registry.Describe()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": descs})
}

// CreateNode handles POST /nodes/{type} and returns default node data.
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	desc, err := def.Describe()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// NodeInputs handles POST /nodes/{type}/inputs.
func (s *Server) NodeInputs(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req dataRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	inputs, err := def.Inputs(req.Data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	outputs, err := def.Outputs(req.Data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PortsResponse{Inputs: inputs, Outputs: outputs})
}

// ProcessNode handles POST /nodes/{type}/process.
func (s *Server) ProcessNode(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req ProcessRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	env := node.Env{
		Executor:   req.Executor,
		Connection: s.plugin.Connection(s.mergeSettings(req.Config)),
	}
	outputs, err := def.Process(r.Context(), req.Data, req.Inputs, env)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{Outputs: outputs})
}

func (s *Server) definition(r *http.Request) (node.Definition, error) {
	return s.registry.Get(node.Type(gochi.URLParam(r, "type"))) //nolint:wrapcheck // already carries the type
}

func (s *Server) mergeSettings(override map[string]string) map[string]string {
	out := maps.Clone(s.settings)
	if out == nil {
		out = make(map[string]string, len(override))
	}
	for k, v := range override {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// decodeBody reads a JSON body keeping numbers as json.Number, so identifiers
// and filter values reach the service exactly as the host wrote them.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err //nolint:wrapcheck // message goes to the client
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v) //nolint:wrapcheck // message goes to the client
}

// writeBodyError answers 413 for bodies over maxBodyBytes and 400 for anything else.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// missingInputHandler reports which port had no value.
func missingInputHandler(w http.ResponseWriter, err error) bool {
	var mie *domain.MissingInputError
	if !errors.As(err, &mie) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeMissingInput,
		Message: err.Error(),
		Port:    mie.Port,
	})
	return true
}

// serviceErrorHandler passes the vector database's own message through.
// Transport failures carry no status and report the dial error instead.
func serviceErrorHandler(w http.ResponseWriter, err error) bool {
	var se *domain.ServiceError
	if !errors.As(err, &se) {
		return false
	}
	msg := se.Message
	if msg == "" {
		msg = http.StatusText(se.StatusCode)
	}
	if msg == "" {
		msg = se.Error()
	}
	writeError(w, http.StatusBadGateway, CodeServiceError, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", chimw.GetReqID(r.Context())))
	log.Warn("node error", zap.String("node", gochi.URLParam(r, "type")), zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
