package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger used by both binaries. Records carry
// request_id and trace_id/span_id whenever the context holds them.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewContextHandler(handler))
}
