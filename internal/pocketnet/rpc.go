// Package pocketnet is a minimal client for the public Pocketnet (Bastyon)
// RPC interface, covering only the single call this project needs.
package pocketnet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alanbriolat/peertube-dl/internal/httputil"
)

// DefaultEndpoint is the public RPC node used when no endpoint is configured.
const DefaultEndpoint = "https://pocketnet.app:8899/rpc/public/"

// MethodGetTransaction retrieves a transaction (post) together with its
// attached message record.
const MethodGetTransaction = "getrawtransactionwithmessagebyid"

const maxErrorBody = 512

// ErrBadResponse means the RPC response did not carry a payload in any of the
// shapes the public nodes are known to produce.
var ErrBadResponse = errors.New("unexpected RPC response shape")

// A StatusError is a non-success HTTP response from the RPC endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("RPC request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{Endpoint: endpoint, HTTPClient: httputil.DefaultClient()}
}

type request struct {
	Method     string `json:"method"`
	Parameters []any  `json:"parameters"`
}

// Call issues a single RPC call and returns the raw payload. The public nodes
// answer in several shapes: {"result": ..., "data": [...]}, a bare array, or
// {"data": [...]} alone; the payload is wherever the data actually is.
func (c *Client) Call(ctx context.Context, method string, parameters ...any) (json.RawMessage, error) {
	if parameters == nil {
		parameters = []any{}
	}
	body, err := json.Marshal(request{Method: method, Parameters: parameters})
	if err != nil {
		return nil, fmt.Errorf("failed to encode RPC request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPC response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(raw)}
	}
	return extractPayload(raw)
}

func extractPayload(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(envelope.Data) > 0 {
		return envelope.Data, nil
	}
	return nil, ErrBadResponse
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httputil.DefaultClient()
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
