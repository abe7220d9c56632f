// Package bastyon resolves Bastyon (Pocketnet) post URLs. A post is looked up
// over the public RPC interface and its embedded external video link is fed
// back through the peertube normalizer.
package bastyon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/alanbriolat/peertube-dl"
	"github.com/alanbriolat/peertube-dl/internal/pocketnet"
	"github.com/alanbriolat/peertube-dl/resolver/peertube"
)

// videoURLField is the post record attribute holding the URL-encoded external
// video link.
const videoURLField = "u"

type Config struct {
	// Domain suffixes whose URLs are treated as social post links.
	Domains []string
	// Exact post-view paths (after stripping trailing slashes).
	PostPaths []string
	// Query parameters that may carry the post transaction ID, in priority order.
	QueryParams []string
	RPC         *pocketnet.Client
}

func NewConfig() Config {
	return Config{
		Domains:     []string{"bastyon.com", "pocketnet.app"},
		PostPaths:   []string{"/post", "/index"},
		QueryParams: []string{"s", "tx", "id"},
		RPC:         pocketnet.NewClient(""),
	}
}

// Resolve looks up the post behind a Bastyon URL and normalizes its embedded
// video link. Input that is not a recognized post URL (or carries no post
// identifier) yields ErrNotApplicable so the plain normalizer gets a try.
func (c *Config) Resolve(ctx context.Context, raw string) (peertube_dl.Reference, error) {
	txID, ok := c.extractPostID(raw)
	if !ok {
		return peertube_dl.Reference{}, peertube_dl.ErrNotApplicable
	}

	payload, err := c.RPC.Call(ctx, pocketnet.MethodGetTransaction, txID)
	if err != nil {
		return peertube_dl.Reference{}, fmt.Errorf("post lookup failed: %w", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(payload, &records); err != nil || len(records) == 0 {
		return peertube_dl.Reference{}, peertube_dl.ErrPostNotFound
	}

	encoded, _ := records[0][videoURLField].(string)
	if encoded == "" {
		return peertube_dl.Reference{}, peertube_dl.ErrNoVideoURL
	}
	videoURL, err := url.QueryUnescape(encoded)
	if err != nil {
		videoURL = encoded
	}
	ref := peertube.Normalize(videoURL)
	if !ref.IsResolved() {
		return peertube_dl.Reference{}, peertube_dl.ErrBadPostVideoURL
	}
	return ref, nil
}

// extractPostID decides whether raw is a recognized post URL and pulls the
// post transaction ID out of it.
func (c *Config) extractPostID(raw string) (string, bool) {
	parsedURL, err := url.Parse(raw)
	if err != nil || parsedURL.Host == "" {
		return "", false
	}
	if !c.matchesDomain(parsedURL.Hostname()) {
		return "", false
	}
	if !c.matchesPostPath(strings.TrimRight(parsedURL.Path, "/")) {
		return "", false
	}
	query := parsedURL.Query()
	for _, param := range c.QueryParams {
		if id := query.Get(param); id != "" {
			return id, true
		}
	}
	return "", false
}

func (c *Config) matchesDomain(host string) bool {
	for _, domain := range c.Domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (c *Config) matchesPostPath(path string) bool {
	for _, p := range c.PostPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (c *Config) Resolver() peertube_dl.Resolver {
	return peertube_dl.Resolver{Name: "bastyon", Resolve: c.Resolve}
}

// Default is the configuration used by the resolver registered at package
// init. Mutating it (e.g. pointing RPC at a different endpoint) affects
// subsequent ResolveInput calls.
var Default = NewConfig()

func init() {
	peertube_dl.DefaultResolverRegistry.MustAdd(Default.Resolver())
}
