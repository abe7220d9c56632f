package peertube_dl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDownload(t *testing.T, server *httptest.Server, targetDir string, progress func(int64, int64)) Download {
	t.Helper()
	d, err := NewDownloadBuilder().
		WithContext(context.Background()).
		WithHTTPClient(server.Client()).
		WithTargetDir(targetDir).
		WithProgressCallback(progress).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSaveURL(t *testing.T) {
	assert := assert.New(t)
	content := strings.Repeat("0123456789abcdef", 8192) // bigger than one chunk
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("*/*", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	dir := t.TempDir()
	var lastDownloaded, lastExpected int64
	d := buildDownload(t, server, dir, func(downloaded, expected int64) {
		lastDownloaded, lastExpected = downloaded, expected
	})

	require.NoError(t, d.SaveURL("video.mp4", server.URL+"/video.mp4"))

	data, err := os.ReadFile(filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(content, string(data))
	assert.NoFileExists(filepath.Join(dir, "video.mp4"+TempSuffix))
	assert.Equal(int64(len(content)), lastDownloaded)
	assert.Equal(int64(len(content)), lastExpected, "expected bytes from content-length")

	downloaded, expected := d.Progress()
	assert.Equal(int64(len(content)), downloaded)
	assert.Equal(int64(len(content)), expected)
}

func TestSaveURLNoContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing forces chunked encoding, so no Content-Length is sent.
		_, _ = w.Write([]byte("streamed "))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		_, _ = w.Write([]byte("without a length"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := buildDownload(t, server, dir, nil)
	require.NoError(t, d.SaveURL("out.bin", server.URL))

	downloaded, expected := d.Progress()
	assert.Equal(t, int64(len("streamed without a length")), downloaded)
	data, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	assert.Equal(t, "streamed without a length", string(data))
	assert.Equal(t, int64(0), expected, "no content-length means no expected total")
}

func TestSaveURLStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone away", http.StatusGone)
	}))
	defer server.Close()

	dir := t.TempDir()
	d := buildDownload(t, server, dir, nil)
	err := d.SaveURL("out.bin", server.URL)
	require.Error(t, err)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, http.StatusGone, transferErr.StatusCode)
	assert.Contains(t, transferErr.Body, "gone away")
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"))
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"+TempSuffix))
}

func TestSaveURLPartialFailureCleansUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more than we deliver, then drop the connection.
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte("only a little"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	d := buildDownload(t, server, dir, nil)
	err := d.SaveURL("out.bin", server.URL)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"))
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"+TempSuffix))
}

func TestSaveURLCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte("some bytes before cancelling"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	dir := t.TempDir()
	d, err := NewDownloadBuilder().
		WithContext(ctx).
		WithHTTPClient(server.Client()).
		WithTargetDir(dir).
		WithProgressCallback(func(downloaded, expected int64) {
			if downloaded > 0 {
				cancel()
			}
		}).
		Build()
	require.NoError(t, err)
	defer d.Close()

	err = d.SaveURL("out.bin", server.URL)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"))
	assert.NoFileExists(t, filepath.Join(dir, "out.bin"+TempSuffix))
}

func TestSaveURLRemovesStaleTempFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	dir := t.TempDir()
	stale := filepath.Join(dir, "out.bin"+TempSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("stale leftovers"), 0644))

	d := buildDownload(t, server, dir, nil)
	require.NoError(t, d.SaveURL("out.bin", server.URL))

	data, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	assert.Equal(t, "fresh content", string(data))
	assert.NoFileExists(t, stale)
}

func TestDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain helper"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "out.bin")
	require.NoError(t, DownloadFile(context.Background(), server.URL, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "plain helper", string(data))
}
