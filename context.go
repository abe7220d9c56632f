package peertube_dl

import (
	"context"
	"io"
)

// A context-aware io.Reader wrapper: reads fail as soon as the context is
// done, which is what lets a cancelled transfer reach its cleanup path.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
