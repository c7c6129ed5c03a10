package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchat/finchat/chat"
	"github.com/finchat/finchat/config"
	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/knowledge"
	"github.com/finchat/finchat/llm"
)

type flatEmbedder struct{}

func (flatEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

var _ embeddings.Embedder = flatEmbedder{}

type stubLLM struct{ answer string }

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.answer, nil
}

var _ llm.Client = (*stubLLM)(nil)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	manager := knowledge.NewManager(nil, flatEmbedder{}, nil)
	router := chat.NewRouter(manager, &stubLLM{answer: "synthetic answer"}, chat.Config{}, nil)
	srv := NewServer(manager, router, cfg, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func uploadCSV(t *testing.T, url, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionDocumentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	decodeBody(t, resp, &created)
	sessionID := created["session_id"]
	require.NotEmpty(t, sessionID)

	csv := "month,revenue\n2024-01,100\n2024-02,120\n"
	resp = uploadCSV(t, fmt.Sprintf("%s/api/v1/sessions/%s/documents", ts.URL, sessionID), "sales.csv", csv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploaded uploadResponse
	decodeBody(t, resp, &uploaded)
	assert.NotEmpty(t, uploaded.DocumentID)
	assert.Equal(t, "processed", uploaded.Status)
	assert.Greater(t, uploaded.Chunks, 0)

	listResp, err := http.Get(fmt.Sprintf("%s/api/v1/sessions/%s/documents", ts.URL, sessionID))
	require.NoError(t, err)
	var listing struct {
		Documents []json.RawMessage `json:"documents"`
	}
	decodeBody(t, listResp, &listing)
	assert.Len(t, listing.Documents, 1)

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v1/sessions/%s/documents/%s", ts.URL, sessionID, uploaded.DocumentID), nil)
	require.NoError(t, err)
	deleteResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	deleteResp.Body.Close()
	assert.Equal(t, http.StatusOK, deleteResp.StatusCode)
}

func TestUploadUnsupportedTypeRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/sessions", nil)
	var created map[string]string
	decodeBody(t, resp, &created)

	uploadResp := uploadCSV(t,
		fmt.Sprintf("%s/api/v1/sessions/%s/documents", ts.URL, created["session_id"]),
		"notes.txt", "plain text")
	defer uploadResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, uploadResp.StatusCode)
}

func TestUploadToUnknownSessionRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadCSV(t, ts.URL+"/api/v1/sessions/ghost/documents", "sales.csv", "a,b\n1,2\n")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/sessions", nil)
	var created map[string]string
	decodeBody(t, resp, &created)
	sessionID := created["session_id"]

	uploadResp := uploadCSV(t,
		fmt.Sprintf("%s/api/v1/sessions/%s/documents", ts.URL, sessionID),
		"sales.csv", "month,revenue\n2024-01,100\n")
	uploadResp.Body.Close()

	chatResp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{
		"query":      "summarize the uploaded data",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, chatResp.StatusCode)

	var response chat.Response
	decodeBody(t, chatResp, &response)
	assert.Equal(t, chat.StrategySummarize, response.Strategy)
	assert.Equal(t, "synthetic answer", response.Text)
}

func TestChatRequiresQuery(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/chat", map[string]any{"query": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearSession(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/sessions", nil)
	var created map[string]string
	decodeBody(t, resp, &created)
	sessionID := created["session_id"]

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/sessions/"+sessionID, nil)
	require.NoError(t, err)
	clearResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	clearResp.Body.Close()
	assert.Equal(t, http.StatusOK, clearResp.StatusCode)

	again, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}

func TestPermanentEndpointsRequireConfiguredBase(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/documents")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	uploadResp := uploadCSV(t, ts.URL+"/api/v1/documents", "sales.csv", "a,b\n1,2\n")
	uploadResp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, uploadResp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	var stats knowledge.Stats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 0, stats.PermanentChunks)
}
