package peertube_dl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alanbriolat/peertube-dl/internal/httputil"
)

// videoEndpoint is the host-relative PeerTube API path for a single video.
const videoEndpoint = "/api/v1/videos/"

const maxErrorBody = 512

// VideoMetadata is the PeerTube API description of a video, kept verbatim as
// parsed JSON. PeerTube versions disagree on some field names, so logical
// attributes are read through small ordered field tables rather than a fixed
// schema.
type VideoMetadata map[string]any

var (
	titleFields     = []string{"name", "title"}
	idFields        = []string{"uuid", "shortUUID", "id"}
	thumbnailFields = []string{"thumbnailPath", "previewPath"}
)

// Title returns the video's display name, or "" if none is present.
func (m VideoMetadata) Title() string {
	return m.firstString(titleFields)
}

// UniqueID returns the video's unique identifier, or "" if none is present.
func (m VideoMetadata) UniqueID() string {
	if s := m.firstString(idFields); s != "" {
		return s
	}
	// Numeric IDs survive as float64 after JSON parsing.
	for _, field := range idFields {
		if n, ok := asNumber(m[field]); ok {
			return fmt.Sprintf("%.0f", n)
		}
	}
	return ""
}

// Description returns the video description, or "" if none is present.
func (m VideoMetadata) Description() string {
	s, _ := m["description"].(string)
	return s
}

// ThumbnailPath returns the host-relative thumbnail or preview path, or "".
func (m VideoMetadata) ThumbnailPath() string {
	return m.firstString(thumbnailFields)
}

func (m VideoMetadata) firstString(fields []string) string {
	for _, field := range fields {
		if s, ok := m[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// An APIError is a non-success HTTP response from the PeerTube API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// A Client fetches video metadata from PeerTube instances.
type Client struct {
	HTTPClient *http.Client
}

// FetchVideoMeta retrieves the metadata for a resolved Reference. The JSON
// body is returned as-is; missing optional fields are tolerated downstream.
func (c *Client) FetchVideoMeta(ctx context.Context, ref Reference) (VideoMetadata, error) {
	if !ref.IsResolved() {
		return nil, ErrUnresolvedReference
	}
	endpoint := strings.TrimRight(ref.Host, "/") + videoEndpoint + url.PathEscape(ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}
	var meta VideoMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata response: %w", err)
	}
	return meta, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httputil.DefaultClient()
}

// DefaultClient is used by the package-level FetchVideoMeta.
var DefaultClient = &Client{}

// FetchVideoMeta retrieves video metadata using the default client.
func FetchVideoMeta(ctx context.Context, ref Reference) (VideoMetadata, error) {
	return DefaultClient.FetchVideoMeta(ctx, ref)
}

func bodySnippet(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
