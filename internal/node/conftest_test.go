package node

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/filter"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/request"
)

// --- Mocks ---

type mockService struct {
	collections []string
	status      string
	deleted     bool
	scored      []point.Scored
	records     []point.Record
	page        request.Page
	err         error

	upsert     *request.Upsert
	search     *request.Search
	scroll     *request.Scroll
	getIDs     []point.ID
	collection string
	filter     filter.Filter
}

func (m *mockService) ListCollections(context.Context) ([]string, error) {
	return m.collections, m.err
}

func (m *mockService) UpsertPoint(_ context.Context, req request.Upsert) (string, error) {
	m.upsert = &req
	return m.status, m.err
}

func (m *mockService) SearchPoints(_ context.Context, req request.Search) ([]point.Scored, error) {
	m.search = &req
	return m.scored, m.err
}

func (m *mockService) GetPoints(_ context.Context, collection string, ids []point.ID) ([]point.Record, error) {
	m.collection = collection
	m.getIDs = ids
	return m.records, m.err
}

func (m *mockService) ScrollPoints(_ context.Context, req request.Scroll) (request.Page, error) {
	m.scroll = &req
	return m.page, m.err
}

func (m *mockService) DeletePoints(_ context.Context, collection string, f filter.Filter) (string, error) {
	m.collection = collection
	m.filter = f
	return m.status, m.err
}

func (m *mockService) DeleteCollection(_ context.Context, collection string) (bool, error) {
	m.collection = collection
	return m.deleted, m.err
}

// dialer counts dials and records the connection of the last one.
type dialer struct {
	svc   *mockService
	dials int
	conn  Connection
}

func (d *dialer) dial(conn Connection) Service {
	d.dials++
	d.conn = conn
	return d.svc
}

type mockEmbedder struct {
	vec       []float64
	err       error
	lastText  string
	lastModel string
}

func (m *mockEmbedder) Embed(_ context.Context, text, model string) ([]float64, error) {
	m.lastText = text
	m.lastModel = model
	return m.vec, m.err
}

// --- Helpers ---

var serverEnv = Env{
	Executor:   ExecutorNode,
	Connection: Connection{URL: "http://qdrant:6333", APIKey: "secret"},
}

func standard(t *testing.T, svc *mockService, opts Options) (map[Type]Definition, *dialer) {
	t.Helper()
	d := &dialer{svc: svc}
	opts.Dial = d.dial
	defs := make(map[Type]Definition)
	for _, def := range Standard(opts) {
		defs[def.Type()] = def
	}
	return defs, d
}

func rawData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func vectorInput(v ...float64) port.Inputs {
	return port.Inputs{portEmbedding: port.Vector(v)}
}
