// Package httputil provides the shared HTTP client used for metadata, RPC and
// file transfer requests.
package httputil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewClient creates an HTTP client with secure defaults. No overall timeout is
// set because the same client streams video files; per-call deadlines come
// from the request context.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

var defaultClient = NewClient()

// DefaultClient returns the process-wide shared client.
func DefaultClient() *http.Client {
	return defaultClient
}
