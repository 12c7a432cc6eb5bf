package testutils

import (
	"bytes"
	"context"
	"log/slog"

	slogctx "github.com/veqryn/slog-context"
)

// NewLogContext returns a context carrying a debug level JSON logger that
// writes into the returned buffer.
func NewLogContext(ctx context.Context) (context.Context, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slogctx.NewCtx(ctx, slog.New(handler)), buf
}
