// Package mwlogger provides request- and batch-scoped loggers carried in context
package mwlogger

import (
	"context"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type loggerKey struct{}

// NewMWLogger - обёртка для логирования запросов с присвоением UUID каждому запросу и пробросу логгера в контекст запроса
func NewMWLogger(next *ginext.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fetching/generating UUID for request
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set("X-Request-Id", reqID)

		// Creating logger
		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		// Running handler with logger in context
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
	})
}

// WithLogger puts logger into ctx.
func WithLogger(ctx context.Context, logger zlog.Zerolog) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithBatch derives a logger tagged with batch_id from the one already in ctx.
func WithBatch(ctx context.Context, batchID string) context.Context {
	logger := LoggerFromContext(ctx).With().Str("batch_id", batchID).Logger()
	return WithLogger(ctx, logger)
}

// LoggerFromContext extracts logger from context - used in service-layer and converter
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(loggerKey{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
