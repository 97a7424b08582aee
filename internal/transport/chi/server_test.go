package chi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
	"github.com/qdrant/rivet-plugin-qdrant/internal/registry"
	"github.com/qdrant/rivet-plugin-qdrant/internal/transport/qdrant"
)

// --- Fake Qdrant ---

type qdrantCall struct {
	Method string
	Path   string
	APIKey string
	Body   map[string]any
}

type fakeQdrant struct {
	mu     sync.Mutex
	calls  []qdrantCall
	status int
	body   string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	c := qdrantCall{Method: r.Method, Path: r.URL.Path, APIKey: r.Header.Get("api-key")}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.Body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeQdrant) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// --- Helpers ---

func newTestServer(t *testing.T, status int, body string) (*fakeQdrant, http.Handler) {
	t.Helper()
	fake := &fakeQdrant{status: status, body: body}
	qsrv := httptest.NewServer(fake)
	t.Cleanup(qsrv.Close)

	reg, err := registry.Build(registry.Deps{
		Dial: func(c node.Connection) node.Service {
			return qdrant.New(qdrant.Config{URL: c.URL, APIKey: c.APIKey})
		},
	})
	require.NoError(t, err)

	srv := NewServer(reg, map[string]string{
		registry.SettingURL:    qsrv.URL,
		registry.SettingAPIKey: "host-key",
	}, nil)
	return fake, srv.Handler()
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

// --- Tests ---

func TestProcessNode_ListCollections(t *testing.T) {
	fake, h := newTestServer(t, http.StatusOK,
		`{"result":{"collections":[{"name":"docs"},{"name":"images"}]},"status":"ok","time":0.001}`)

	rr := post(t, h, "/nodes/listCollections/process", ProcessRequest{Executor: node.ExecutorNode})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Outputs map[string]struct {
			Type  string   `json:"type"`
			Value []string `json:"value"`
		} `json:"outputs"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "string[]", resp.Outputs["collectionNames"].Type)
	assert.Equal(t, []string{"docs", "images"}, resp.Outputs["collectionNames"].Value)

	require.Equal(t, 1, fake.count())
	assert.Equal(t, "/collections", fake.calls[0].Path)
	assert.Equal(t, "host-key", fake.calls[0].APIKey)
}

func TestProcessNode_RequestConfigOverridesHost(t *testing.T) {
	fake, h := newTestServer(t, http.StatusOK, `{"result":true,"status":"ok"}`)

	rr := post(t, h, "/nodes/deleteCollection/process", map[string]any{
		"executor": "nodejs",
		"data":     map[string]any{"collectionName": "docs"},
		"config":   map[string]string{registry.SettingAPIKey: "request-key"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 1, fake.count())
	assert.Equal(t, http.MethodDelete, fake.calls[0].Method)
	assert.Equal(t, "/collections/docs", fake.calls[0].Path)
	assert.Equal(t, "request-key", fake.calls[0].APIKey)
}

func TestProcessNode_UpsertForwardsNumericID(t *testing.T) {
	fake, h := newTestServer(t, http.StatusOK, `{"result":{"operation_id":1,"status":"completed"},"status":"ok"}`)

	rr := post(t, h, "/uploadPoint", nil) // not a route
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = post(t, h, "/nodes/uploadPoint/process", map[string]any{
		"executor": "nodejs",
		"data":     map[string]any{"collectionName": "docs", "id": "42", "payload": `{"a":1}`},
		"inputs":   map[string]any{"embedding": map[string]any{"type": "vector", "value": []float64{0.1, 0.2}}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"outputs":{"status":{"type":"string","value":"completed"}}}`, rr.Body.String())

	require.Equal(t, 1, fake.count())
	points, ok := fake.calls[0].Body["points"].([]any)
	require.True(t, ok)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, float64(42), p["id"])
	assert.Equal(t, map[string]any{"a": float64(1)}, p["payload"])
}

func TestProcessNode_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       map[string]any
		wantStatus int
		wantCode   string
		wantPort   string
	}{
		{
			name:       "unknown node",
			path:       "/nodes/createCollection/process",
			body:       map[string]any{"executor": "nodejs"},
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNodeNotFound,
		},
		{
			name:       "browser executor",
			path:       "/nodes/listCollections/process",
			body:       map[string]any{"executor": "browser"},
			wantStatus: http.StatusPreconditionFailed,
			wantCode:   CodeEnvironmentUnsupported,
		},
		{
			name: "missing input",
			path: "/nodes/searchPoints/process",
			body: map[string]any{
				"executor": "nodejs",
				"data":     map[string]any{"collectionName": "docs"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeMissingInput,
			wantPort:   "embedding",
		},
		{
			name: "invalid identifier",
			path: "/nodes/getPoints/process",
			body: map[string]any{
				"executor": "nodejs",
				"data":     map[string]any{"collectionName": "docs", "ids": []any{"a", true}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidInput,
		},
		{
			name: "invalid filter",
			path: "/nodes/deletePoints/process",
			body: map[string]any{
				"executor": "nodejs",
				"data":     map[string]any{"collectionName": "docs", "filter": "{oops"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidInput,
		},
		{
			name: "invalid node data",
			path: "/nodes/scrollPoints/process",
			body: map[string]any{
				"executor": "nodejs",
				"data":     map[string]any{"collectionName": "docs", "limit": "many"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake, h := newTestServer(t, http.StatusOK, `{"result":{},"status":"ok"}`)

			rr := post(t, h, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
			resp := decodeError(t, rr)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Equal(t, tc.wantPort, resp.Port)
			assert.Zero(t, fake.count(), "no request may reach the service")
		})
	}
}

func TestProcessNode_ServiceError(t *testing.T) {
	_, h := newTestServer(t, http.StatusNotFound,
		`{"status":{"error":"Not found: Collection `+"`gone`"+` doesn't exist!"},"time":0.0}`)

	rr := post(t, h, "/nodes/deleteCollection/process", map[string]any{
		"executor": "nodejs",
		"data":     map[string]any{"collectionName": "gone"},
	})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, CodeServiceError, resp.Code)
	assert.Contains(t, resp.Message, "doesn't exist")
}

func TestProcessNode_UnreachableQdrant(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	rr := post(t, h, "/nodes/listCollections/process", map[string]any{
		"executor": "nodejs",
		"config":   map[string]string{registry.SettingURL: deadURL},
	})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, CodeServiceError, resp.Code)
	assert.Contains(t, resp.Message, "connection refused")
}

func TestProcessNode_MalformedBody(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)

	req := httptest.NewRequest(http.MethodPost, "/nodes/listCollections/process", bytes.NewReader([]byte(`{"executor":`)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, rr).Code)
}

func TestProcessNode_BodyTooLarge(t *testing.T) {
	fake, h := newTestServer(t, http.StatusOK, `{}`)

	body := bytes.Repeat([]byte(" "), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/nodes/listCollections/process", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, CodeBodyTooLarge, decodeError(t, rr).Code)
	assert.Zero(t, fake.count())
}

func TestListNodes(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)

	req := httptest.NewRequest(http.MethodGet, "/nodes", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Items []node.Descriptor `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Items, 7)
}

func TestCreateNodeAndInputs(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)

	rr := post(t, h, "/nodes/scrollPoints", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var desc struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&desc))
	assert.Equal(t, float64(10), desc.Data["limit"])

	rr = post(t, h, "/nodes/scrollPoints/inputs", map[string]any{
		"data": map[string]any{"useCollectionNameInput": true, "useFilterInput": true},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var ports PortsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ports))
	require.Len(t, ports.Inputs, 2)
	assert.Equal(t, "collectionName", string(ports.Inputs[0].ID))
	assert.Equal(t, "filter", string(ports.Inputs[1].ID))
	require.Len(t, ports.Outputs, 1)
	assert.Equal(t, "points", string(ports.Outputs[0].ID))
}

func TestGetPlugin(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)

	req := httptest.NewRequest(http.MethodGet, "/plugin", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp PluginResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "qdrant", resp.ID)
	assert.Len(t, resp.Settings, 2)
	assert.Contains(t, resp.Nodes, node.TypeUpsertPoint)
}

func TestHealthCheck(t *testing.T) {
	_, h := newTestServer(t, http.StatusOK, `{}`)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
