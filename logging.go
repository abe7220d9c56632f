package peertube_dl

import (
	"context"

	"go.uber.org/zap"
)

type loggerKeyType struct{}

var loggerKey loggerKeyType

// WithLogger attaches a zap logger to the context for the presentation layers
// to use; the core pipeline itself does not log.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the logger attached by WithLogger, or the global logger.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}
