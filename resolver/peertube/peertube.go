// Package peertube normalizes user input into a (host, video ID) Reference.
//
// Recognized input shapes:
//
//	peertube://{host}/{id}
//	http(s?)://{host}/w/{id}
//	http(s?)://{host}/videos/(watch|embed)/{id}
//	http(s?)://{host}/api/v1/videos/{id}
//
// Any other absolute URL falls back to treating the last path segment as the
// video ID. Anything else yields an unresolved Reference, never an error.
package peertube

import (
	"context"
	"net/url"
	"strings"

	"github.com/alanbriolat/peertube-dl"
	"github.com/alanbriolat/peertube-dl/generic"
)

// Scheme is the internal link scheme used by Bastyon and friends to reference
// a video on an arbitrary PeerTube instance.
const Scheme = "peertube://"

var webSchemes = generic.NewSet("http", "https")

// Each pattern is the fixed sequence of path segments expected to immediately
// precede the video ID.
var pathPatterns = [][]string{
	{"w"},
	{"videos", "watch"},
	{"videos", "embed"},
	{"api", "v1", "videos"},
}

// Normalize parses raw input into a Reference. It never fails; input that
// cannot be understood yields an unresolved Reference.
func Normalize(raw string) peertube_dl.Reference {
	if strings.HasPrefix(raw, Scheme) {
		return normalizeInternal(strings.TrimPrefix(raw, Scheme))
	}
	return normalizeURL(raw)
}

func normalizeInternal(rest string) peertube_dl.Reference {
	var ref peertube_dl.Reference
	// Segments beyond the second are ignored.
	segments := splitPath(rest)
	if len(segments) > 0 {
		ref.Host = ensureScheme(segments[0])
	}
	if len(segments) > 1 {
		ref.ID = segments[1]
	}
	return ref
}

func normalizeURL(raw string) peertube_dl.Reference {
	var ref peertube_dl.Reference
	parsedURL, err := url.Parse(raw)
	if err != nil || parsedURL.Host == "" || !webSchemes.Contains(parsedURL.Scheme) {
		return ref
	}
	ref.Host = ensureScheme(parsedURL.Host)
	segments := splitPath(parsedURL.Path)
	if id, ok := matchPattern(segments); ok {
		ref.ID = id
	} else if len(segments) > 0 {
		// Best effort: assume the last segment is the video ID.
		ref.ID = segments[len(segments)-1]
	}
	return ref
}

// matchPattern scans the path segments for the first known pattern, returning
// the segment that immediately follows it.
func matchPattern(segments []string) (string, bool) {
	for _, pattern := range pathPatterns {
		for i := 0; i+len(pattern) < len(segments); i++ {
			if segmentsEqual(segments[i:i+len(pattern)], pattern) {
				return segments[i+len(pattern)], true
			}
		}
	}
	return "", false
}

func segmentsEqual(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// ensureScheme forces secure transport unless the host already carries an
// explicit scheme.
func ensureScheme(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// Resolve adapts Normalize to the resolver registry contract.
func Resolve(_ context.Context, raw string) (peertube_dl.Reference, error) {
	return Normalize(raw), nil
}

func New() peertube_dl.Resolver {
	return peertube_dl.Resolver{Name: "peertube", Resolve: Resolve}
}

func init() {
	peertube_dl.DefaultResolverRegistry.MustAdd(New().WithPriority(peertube_dl.PriorityLowest))
}
