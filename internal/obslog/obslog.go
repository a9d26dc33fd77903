// Package obslog provides the process-wide structured logger used by the
// background sweepers and any operation whose error must be logged and
// swallowed rather than propagated. It is a thin log/slog front-end
// over a rotating lumberjack sink, initialized once.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Options configures the rotation sink. A zero Options uses sane defaults.
type Options struct {
	Path       string // empty means stderr only, no rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init sets up the process-wide logger. A second call is a no-op, matching
// the global-singleton rule for process-wide read-mostly state.
func Init(opts Options) {
	once.Do(func() {
		var w io.Writer = os.Stderr
		if opts.Path != "" {
			maxSize := opts.MaxSizeMB
			if maxSize == 0 {
				maxSize = 10
			}
			maxBackups := opts.MaxBackups
			if maxBackups == 0 {
				maxBackups = 3
			}
			maxAge := opts.MaxAgeDays
			if maxAge == 0 {
				maxAge = 28
			}
			w = &lumberjack.Logger{
				Filename:   opts.Path,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				MaxAge:     maxAge,
			}
		}
		logger = slog.New(slog.NewJSONHandler(w, nil))
	})
}

// L returns the process-wide logger, initializing it with defaults
// (stderr only) if Init has not yet been called.
func L() *slog.Logger {
	Init(Options{})
	return logger
}
