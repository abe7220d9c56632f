package peertube_dl

import "errors"

var (
	ErrDuplicateResolver = errors.New("duplicate resolver name")
	ErrInvalidResolver   = errors.New("invalid resolver")
	ErrUnknownResolver   = errors.New("unknown resolver")
	// ErrNoMatch is returned when resolution was attempted with no resolvers
	// registered at all.
	ErrNoMatch = errors.New("no resolver matched the input")

	// ErrUnresolvedReference means the input looked like nothing we can turn
	// into a (host, video ID) pair.
	ErrUnresolvedReference = errors.New("could not resolve input to a video reference")
	// ErrPostNotFound means the social post lookup returned an empty payload.
	ErrPostNotFound = errors.New("post not found")
	// ErrNoVideoURL means the post record carries no external video link.
	ErrNoVideoURL = errors.New("post has no external video URL")
	// ErrBadPostVideoURL means the post's embedded link did not normalize to a
	// resolved Reference.
	ErrBadPostVideoURL = errors.New("unable to parse video URL from post")
)
