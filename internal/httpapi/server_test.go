package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/extraction"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/scoring"
	"github.com/fyrsmithlabs/recalld/internal/search"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	scoring.ResetGoldenCache()
	dir := t.TempDir()

	provider := embeddings.NewStaticProvider(64)
	index, err := vectorstore.NewSQLiteIndex(vectorstore.SQLiteConfig{
		Path:       filepath.Join(dir, "index.db"),
		VectorSize: 64,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	records := knowledge.NewStore(filepath.Join(dir, "records.json"), nil)
	meta := session.NewMetaStore(filepath.Join(dir, "sessions.json"), 10, nil)

	captures := session.NewService(
		extraction.NewExtractor(nil),
		scoring.NewScorer(provider, config.ScoringConfig{
			Thresholds: map[string]float64{"decision": 0, "pattern": 0, "task": 0, "insight": 0},
			MinLengths: map[string]int{"decision": 1, "pattern": 1, "task": 1, "insight": 1},
		}, nil),
		provider, records, index, meta, nil, nil,
	)
	searcher := search.NewService(provider, index, records, meta, nil)

	srv, err := NewServer(captures, searcher, config.HTTPConfig{Addr: "127.0.0.1:0"}, nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCaptureThenSearch(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/capture",
		`{"session_id":"s1","text":"[D] db: Use SQLite for local persistence"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var captured session.CaptureResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &captured))
	assert.Equal(t, "s1", captured.SessionID)
	assert.Equal(t, 1, captured.Accepted)

	rec = doJSON(t, srv, http.MethodGet, "/v1/search?q=sqlite+persistence&k=3&type=decision", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "decision", resp.Results[0].Type)
	assert.Contains(t, resp.Results[0].Snippet, "SQLite")
}

func TestCaptureRequiresSessionID(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/capture", `{"text":"[D] db: Use SQLite"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/search?q=x&k=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/search?q=x&type=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEmptyIndexReturnsEmptyList(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/search?q=anything", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/v1/capture",
		`{"session_id":"s1","text":"[D] db: Use SQLite for local persistence"}`)

	rec := doJSON(t, srv, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats session.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Records[knowledge.TypeDecision])
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/capture",
		`{"session_id":"s1","text":"[T] add integration tests for the capture path"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Find the task ID through search.
	resp := doJSON(t, srv, http.MethodGet, "/v1/search?q=integration+tests+capture&type=task", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var found SearchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &found))
	require.NotEmpty(t, found.Results)
	taskID := found.Results[0].ID

	rec = doJSON(t, srv, http.MethodPost, "/v1/tasks/"+taskID+"/complete", `{"session_id":"s2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/tasks/missing/complete", `{"session_id":"s2"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPruneSession(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/v1/capture",
		`{"session_id":"s1","text":"[D] db: Use SQLite for local persistence"}`)

	rec := doJSON(t, srv, http.MethodDelete, "/v1/sessions/s1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/v1/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodGet, "/healthz", "")

	rec := doJSON(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recalld_http_requests_total")
}
