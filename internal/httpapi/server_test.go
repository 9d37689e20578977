package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
	"docqa/internal/progress"
)

type fakeIngester struct {
	err      error
	warning  string
	filename string
	data     []byte
}

func (f *fakeIngester) Ingest(_ context.Context, filename string, data []byte) (domain.IngestResult, error) {
	f.filename = filename
	f.data = data
	if f.err != nil {
		return domain.IngestResult{}, f.err
	}
	return domain.IngestResult{DocumentID: "doc-1", Filename: filename, Chunks: 3, Units: len(data), Warning: f.warning}, nil
}

type fakeAnswerer struct {
	err      error
	question string
	k        int
	panics   bool
}

func (f *fakeAnswerer) Answer(_ context.Context, question string, k int) (domain.AnswerResponse, error) {
	if f.panics {
		panic("boom")
	}
	f.question = question
	f.k = k
	if f.err != nil {
		return domain.AnswerResponse{}, f.err
	}
	return domain.AnswerResponse{
		Question:  question,
		Answer:    "Blue [1]",
		Status:    domain.StatusAnswered,
		Citations: []domain.Citation{{Ref: 1, DocumentID: "doc-1", Source: "sky.txt"}},
		TopScore:  0.9,
	}, nil
}

type fakeHealth struct{ status domain.HealthStatus }

func (f fakeHealth) Check(context.Context) domain.HealthStatus { return f.status }

type testServer struct {
	server   *Server
	ingester *fakeIngester
	answerer *fakeAnswerer
	docs     *memstore.MemoryStore
	tracker  *progress.Tracker
}

func newTestServer(health domain.HealthStatus) *testServer {
	ts := &testServer{
		ingester: &fakeIngester{},
		answerer: &fakeAnswerer{},
		docs:     memstore.NewMemoryStore(),
		tracker:  progress.NewTracker(10),
	}
	ts.server = NewServer(Options{}, ts.ingester, ts.answerer, fakeHealth{health}, ts.docs, ts.tracker)
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := ts.server.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func queryRequestBody(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIngest(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})

	status, body := ts.do(t, uploadRequest(t, "notes.txt", "hello world"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "doc-1", body["document_id"])
	assert.Equal(t, float64(3), body["chunks"])
	assert.Equal(t, "notes.txt", ts.ingester.filename)
	assert.Equal(t, "hello world", string(ts.ingester.data))
	assert.NotContains(t, body, "warning")

	sessionID, ok := body["session_id"].(string)
	require.True(t, ok)
	s, err := ts.tracker.Get(sessionID)
	require.NoError(t, err)
	assert.False(t, s.Active)
}

func TestIngest_SaveWarning(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	ts.ingester.warning = "failed to save index: read-only file system"

	status, body := ts.do(t, uploadRequest(t, "notes.txt", "hello world"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "doc-1", body["document_id"])
	assert.Equal(t, ts.ingester.warning, body["warning"])
}

func TestIngest_MissingFile(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")

	status, body := ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "empty_input", body["error"])
}

func TestIngest_ErrorMapping(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		code      string
		retryable bool
	}{
		{domain.ErrDuplicateDocument, http.StatusConflict, "duplicate_document", false},
		{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType, "unsupported_type", false},
		{domain.ErrMalformedDocument, http.StatusUnprocessableEntity, "malformed_document", false},
		{domain.ErrEmptyInput, http.StatusBadRequest, "empty_input", false},
		{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "embedding_unavailable", true},
		{domain.ErrEmbeddingTimeout, http.StatusGatewayTimeout, "embedding_timeout", true},
		{domain.ErrDimensionMismatch, http.StatusInternalServerError, "dimension_mismatch", false},
		{fmt.Errorf("disk full"), http.StatusInternalServerError, "internal", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ts := newTestServer(domain.HealthStatus{})
			ts.ingester.err = fmt.Errorf("a.txt: %w", tt.err)

			status, body := ts.do(t, uploadRequest(t, "a.txt", "x"))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, tt.retryable, body["retryable"])
			assert.NotEmpty(t, body["session_id"])
		})
	}
}

func TestQuery(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})

	status, body := ts.do(t, queryRequestBody(`{"question":"Why is the sky blue?","k":4}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Blue [1]", body["answer"])
	assert.Equal(t, "answered", body["status"])
	assert.NotEmpty(t, body["session_id"])
	assert.Len(t, body["citations"], 1)
	assert.Equal(t, "Why is the sky blue?", ts.answerer.question)
	assert.Equal(t, 4, ts.answerer.k)
}

func TestQuery_BadRequests(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})

	status, body := ts.do(t, queryRequestBody(`{"question":"   "}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "empty_input", body["error"])

	status, _ = ts.do(t, queryRequestBody(`{"question":"ok","k":-1}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, queryRequestBody(`not json`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQuery_GenerationTimeout(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	ts.answerer.err = fmt.Errorf("failed to generate answer: %w", domain.ErrGenerationTimeout)

	status, body := ts.do(t, queryRequestBody(`{"question":"q"}`))
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, true, body["retryable"])
}

func TestQuery_PanicIsRecovered(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	ts.answerer.panics = true

	status, body := ts.do(t, queryRequestBody(`{"question":"q"}`))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body["error"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{EmbeddingReachable: true, GenerationReachable: true, IndexEntries: 4, IndexPopulated: true})
	status, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(4), body["index_entries"])

	ts = newTestServer(domain.HealthStatus{EmbeddingReachable: true, GenerationError: "refused"})
	status, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "refused", body["generation_error"])
}

func TestDocuments(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	require.NoError(t, ts.docs.PutDoc(domain.Document{ID: "d1", Filename: "a.txt", Hash: "h1", Text: "secret body"}))

	status, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/documents/d1", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a.txt", body["filename"])
	assert.NotContains(t, body, "text")

	status, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/documents/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestProgress(t *testing.T) {
	ts := newTestServer(domain.HealthStatus{})
	id := ts.tracker.Start()
	ts.tracker.Step(id, "Embedding chunks", progress.StatusInfo, "")

	status, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/progress/"+id, nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["session_id"])
	assert.Len(t, body["steps"], 1)

	status, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/progress/unknown", nil))
	assert.Equal(t, http.StatusNotFound, status)
}
