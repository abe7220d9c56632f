package peertube_dl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchVideoMeta(t *testing.T) {
	assert := assert.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/v1/videos/ABC123", r.URL.Path)
		assert.Equal("application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "A Video", "uuid": "ABC123", "unknownField": 42}`))
	}))
	defer server.Close()

	client := &Client{HTTPClient: server.Client()}
	meta, err := client.FetchVideoMeta(context.Background(), Reference{Host: server.URL, ID: "ABC123"})
	require.NoError(t, err)
	assert.Equal("A Video", meta.Title())
	assert.Equal("ABC123", meta.UniqueID())
	// The body is kept verbatim; unknown fields survive.
	assert.Equal(42.0, meta["unknownField"])
}

func TestFetchVideoMetaEscapesID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := &Client{HTTPClient: server.Client()}
	_, err := client.FetchVideoMeta(context.Background(), Reference{Host: server.URL, ID: "we/ird"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/videos/we%2Fird", gotPath)
}

func TestFetchVideoMetaAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := &Client{HTTPClient: server.Client()}
	_, err := client.FetchVideoMeta(context.Background(), Reference{Host: server.URL, ID: "nope"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "not found")
}

func TestFetchVideoMetaUnresolved(t *testing.T) {
	client := &Client{}
	_, err := client.FetchVideoMeta(context.Background(), Reference{Host: "https://videos.example"})
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestVideoMetadataFieldTables(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("first", VideoMetadata{"name": "first", "title": "second"}.Title())
	assert.Equal("second", VideoMetadata{"title": "second"}.Title())
	assert.Equal("", VideoMetadata{}.Title())
	assert.Equal("123", VideoMetadata{"id": 123.0}.UniqueID())
	assert.Equal("/lazy/thumb.jpg", VideoMetadata{"previewPath": "/lazy/thumb.jpg"}.ThumbnailPath())
	assert.Equal("/static/thumb.jpg", VideoMetadata{"thumbnailPath": "/static/thumb.jpg", "previewPath": "/p.jpg"}.ThumbnailPath())
}
