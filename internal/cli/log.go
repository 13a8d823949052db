package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/psfind/pkg/errors"
)

// newLogger creates the psfind logger. Debug output includes the finder's
// fetch and batch lines, so timestamps keep sub-second precision.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLevel resolves the configured level name. --verbose always means debug.
func logLevel(name string, verbose bool) (log.Level, error) {
	if verbose {
		return LogDebug, nil
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return LogInfo, errors.Wrap(errors.ErrCodeValidation, err, "invalid log level %q", name)
	}
	return level, nil
}

// progress reports how long a command spent talking to one repository.
type progress struct {
	logger     *log.Logger
	repository string
	start      time.Time
}

func newProgress(l *log.Logger, repository string) *progress {
	return &progress{logger: l, repository: repository, start: time.Now()}
}

// done logs msg with the repository and the elapsed time, e.g.
//
//	INFO Resolved 2 of 3 name(s) repository=PSGallery elapsed=412ms
func (p *progress) done(msg string) {
	p.logger.Info(msg, "repository", p.repository, "elapsed", time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for use by subcommands.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when none is set.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
