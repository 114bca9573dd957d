// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Levels lists the names accepted by New.
var Levels = []string{"debug", "info", "warn", "error"}

// New returns a logfmt logger writing to w that drops lines below levelName.
// Every line carries ts and caller.
func New(w io.Writer, levelName string) (log.Logger, error) {
	lvl, err := level.Parse(strings.ToLower(strings.TrimSpace(levelName)))
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", levelName)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, level.Allow(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.Caller(3)), nil
}

// Must is New for callers that have already validated levelName; an unknown
// level falls back to info.
func Must(w io.Writer, levelName string) log.Logger {
	logger, err := New(w, levelName)
	if err != nil {
		logger, _ = New(w, "info")
	}
	return logger
}
