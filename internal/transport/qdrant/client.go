// Package qdrant is a thin REST client for the Qdrant vector database.
// Every method performs exactly one HTTP round trip and never retries.
package qdrant

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/filter"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/request"
	"github.com/qdrant/rivet-plugin-qdrant/internal/metrics"
)

// DefaultURL is the REST endpoint of a local Qdrant.
const DefaultURL = "http://localhost:6333"

const apiKeyHeader = "api-key"

// Config holds the connection settings for one client.
type Config struct {
	URL    string
	APIKey string
	Logger *zap.Logger
}

// Client talks to a single Qdrant REST endpoint.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a client. Clients are cheap and meant to live for one call.
func New(cfg Config) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := resty.New().
		SetBaseURL(strings.TrimRight(url, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())
	if cfg.APIKey != "" {
		h.SetHeader(apiKeyHeader, cfg.APIKey)
	}

	return &Client{http: h, logger: logger}
}

type envelope[T any] struct {
	Result T `json:"result"`
}

type statusResult struct {
	Status string `json:"status"`
}

// ListCollections returns collection names in the order the service reports them.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out envelope[struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}]
	if err := c.do(ctx, "list_collections", c.http.R().SetResult(&out), "GET", "/collections"); err != nil {
		return nil, err
	}

	names := make([]string, len(out.Result.Collections))
	for i, col := range out.Result.Collections {
		names[i] = col.Name
	}
	return names, nil
}

type upsertPoint struct {
	ID      point.ID       `json:"id"`
	Vector  any            `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// UpsertPoint writes one point and returns the operation status.
func (c *Client) UpsertPoint(ctx context.Context, req request.Upsert) (string, error) {
	id := req.ID
	if id.IsZero() {
		id = point.NewID()
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	body := map[string]any{
		"points": []upsertPoint{{ID: id, Vector: req.Vector.UpsertShape(), Payload: payload}},
	}

	var out envelope[statusResult]
	r := c.http.R().
		SetPathParam("collection", req.Collection).
		SetQueryParam("wait", "true").
		SetBody(body).
		SetResult(&out)
	if err := c.do(ctx, "upsert_points", r, "PUT", "/collections/{collection}/points"); err != nil {
		return "", err
	}
	return out.Result.Status, nil
}

type searchBody struct {
	Vector         any           `json:"vector"`
	Filter         filter.Filter `json:"filter"`
	Limit          *int          `json:"limit,omitempty"`
	ScoreThreshold *float64      `json:"score_threshold,omitempty"`
	WithPayload    bool          `json:"with_payload"`
	WithVector     bool          `json:"with_vector"`
}

// SearchPoints returns the nearest points with payload and score, never vectors.
func (c *Client) SearchPoints(ctx context.Context, req request.Search) ([]point.Scored, error) {
	body := searchBody{
		Vector:         req.Vector.SearchShape(),
		Filter:         orEmpty(req.Filter),
		Limit:          req.Limit,
		ScoreThreshold: req.ScoreThreshold,
		WithPayload:    true,
		WithVector:     false,
	}

	var out envelope[[]point.Scored]
	r := c.http.R().
		SetPathParam("collection", req.Collection).
		SetBody(body).
		SetResult(&out)
	if err := c.do(ctx, "search_points", r, "POST", "/collections/{collection}/points/search"); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return []point.Scored{}, nil
	}
	return out.Result, nil
}

// GetPoints retrieves points by identifier with payload and vectors.
func (c *Client) GetPoints(ctx context.Context, collection string, ids []point.ID) ([]point.Record, error) {
	if ids == nil {
		ids = []point.ID{}
	}
	body := map[string]any{
		"ids":          ids,
		"with_payload": true,
		"with_vector":  true,
	}

	var out envelope[[]point.Record]
	r := c.http.R().
		SetPathParam("collection", collection).
		SetBody(body).
		SetResult(&out)
	if err := c.do(ctx, "get_points", r, "POST", "/collections/{collection}/points"); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return []point.Record{}, nil
	}
	return out.Result, nil
}

type scrollBody struct {
	Filter      filter.Filter `json:"filter"`
	Limit       *int          `json:"limit,omitempty"`
	Offset      *point.ID     `json:"offset,omitempty"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
}

// ScrollPoints returns one page of points matching the filter.
func (c *Client) ScrollPoints(ctx context.Context, req request.Scroll) (request.Page, error) {
	body := scrollBody{
		Filter:      orEmpty(req.Filter),
		Limit:       req.Limit,
		Offset:      req.Offset,
		WithPayload: true,
		WithVector:  true,
	}

	var out envelope[struct {
		Points         []point.Record `json:"points"`
		NextPageOffset *point.ID      `json:"next_page_offset"`
	}]
	r := c.http.R().
		SetPathParam("collection", req.Collection).
		SetBody(body).
		SetResult(&out)
	if err := c.do(ctx, "scroll_points", r, "POST", "/collections/{collection}/points/scroll"); err != nil {
		return request.Page{}, err
	}

	points := out.Result.Points
	if points == nil {
		points = []point.Record{}
	}
	return request.Page{Points: points, NextOffset: out.Result.NextPageOffset}, nil
}

// DeletePoints removes every point matching the filter and returns the operation status.
func (c *Client) DeletePoints(ctx context.Context, collection string, f filter.Filter) (string, error) {
	var out envelope[statusResult]
	r := c.http.R().
		SetPathParam("collection", collection).
		SetQueryParam("wait", "true").
		SetBody(map[string]any{"filter": orEmpty(f)}).
		SetResult(&out)
	if err := c.do(ctx, "delete_points", r, "POST", "/collections/{collection}/points/delete"); err != nil {
		return "", err
	}
	return out.Result.Status, nil
}

// DeleteCollection drops a collection. There is no confirmation step.
func (c *Client) DeleteCollection(ctx context.Context, collection string) (bool, error) {
	var out envelope[bool]
	r := c.http.R().
		SetPathParam("collection", collection).
		SetResult(&out)
	if err := c.do(ctx, "delete_collection", r, "DELETE", "/collections/{collection}"); err != nil {
		return false, err
	}
	return out.Result, nil
}

// do executes the request once, records metrics and maps non-2xx answers to ServiceError.
func (c *Client) do(ctx context.Context, op string, r *resty.Request, method, path string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveQdrant(op, start, err) }()

	resp, err := r.SetContext(ctx).Execute(method, path)
	if err != nil {
		c.logger.Warn("qdrant request failed", zap.String("op", op), zap.Error(err))
		return &domain.ServiceError{Op: op, Message: err.Error(), Err: err}
	}
	if resp.IsError() {
		svcErr := &domain.ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body()),
		}
		c.logger.Warn("qdrant returned error",
			zap.String("op", op),
			zap.Int("status", svcErr.StatusCode),
			zap.String("message", svcErr.Message),
		)
		return svcErr
	}

	c.logger.Debug("qdrant request completed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// errorMessage extracts status.error from a Qdrant error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Status.Error != "" {
		return parsed.Status.Error
	}
	return strings.TrimSpace(string(body))
}

func orEmpty(f filter.Filter) filter.Filter {
	if f == nil {
		return filter.Filter{}
	}
	return f
}
