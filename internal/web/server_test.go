package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/alanbriolat/peertube-dl/resolvers"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(Config{TargetDir: t.TempDir()}, zap.NewNop())
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestHandleResolve(t *testing.T) {
	assert := assert.New(t)
	server := testServer(t)

	var resolved map[string]string
	resp := getJSON(t, server.URL+"/api/resolve?url=peertube%3A%2F%2Fvideos.example%2FABC123", &resolved)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("https://videos.example", resolved["host"])
	assert.Equal("ABC123", resolved["id"])
	assert.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandleResolveErrors(t *testing.T) {
	assert := assert.New(t)
	server := testServer(t)

	resp := getJSON(t, server.URL+"/api/resolve", nil)
	assert.Equal(http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	resp = getJSON(t, server.URL+"/api/resolve?url=garbage", &body)
	assert.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(body["error"])
}

func TestHandleDownloadsList(t *testing.T) {
	server := testServer(t)
	var jobs []jobResponse
	resp := getJSON(t, server.URL+"/api/downloads", &jobs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, jobs)
}

func TestHandleDownloadBadID(t *testing.T) {
	server := testServer(t)
	resp := getJSON(t, server.URL+"/api/downloads/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleProxy(t *testing.T) {
	assert := assert.New(t)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg bytes"))
	}))
	defer backend.Close()
	server := testServer(t)

	resp, err := http.Get(server.URL + "/proxy?url=" + backend.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = getJSON(t, server.URL+"/proxy?url=file%3A%2F%2F%2Fetc%2Fpasswd", nil)
	assert.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestStaticAssets(t *testing.T) {
	server := testServer(t)
	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCORSPreflight(t *testing.T) {
	server := testServer(t)
	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/downloads", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestJobStateTransitions(t *testing.T) {
	assert := assert.New(t)
	job := newJob("peertube://videos.example/ABC123", "out.mp4", zap.NewNop())
	assert.Equal(JobPending, job.State().Status)

	job.updateState(func(s *JobState) { s.Status = JobRunning })
	job.updateState(func(s *JobState) { s.DownloadedBytes = 100; s.ExpectedBytes = 1000 })
	state := job.State()
	assert.Equal(JobRunning, state.Status)
	assert.Equal(int64(100), state.DownloadedBytes)

	job.updateState(func(s *JobState) { s.Status = JobFailed; s.Error = "boom" })
	state = job.State()
	assert.Equal(JobFailed, state.Status)
	assert.Equal("boom", state.Error)
}
