package status

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures NewLogger.
type Options struct {
	Level    slog.Leveler
	Fallback io.Writer // generic log channel; defaults to stderr
	Journal  io.Writer // optional JSON record of every message
}

// NewLogger builds the controller logger: status lines go to sink (falling
// back to a text log when the sink is absent or full) and, if configured,
// every record is also written as JSON to opts.Journal.
func NewLogger(sink Sink, opts Options) *slog.Logger {
	fallback := opts.Fallback
	if fallback == nil {
		fallback = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	handlers := []slog.Handler{
		NewHandler(sink, slog.NewTextHandler(fallback, handlerOpts), opts.Level),
	}
	if opts.Journal != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.Journal, handlerOpts))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
