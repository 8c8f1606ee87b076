// Package diag routes engine failures to an injected reporter.
package diag

import (
	"errors"
	"io"
	"log/slog"
	"syscall"

	"github.com/cwbudde/algo-nmr/nmr"
)

// Reporter receives failures of engine entry points.
type Reporter interface {
	// ReportCode reports an operating-system error code.
	ReportCode(code int, activity string)
	// ReportText reports a failure description.
	ReportText(desc, activity string)
}

// Report forwards err to r. Errors carrying a [syscall.Errno] are reported
// by code, everything else by text. A nil err is ignored.
func Report(r Reporter, err error, activity string) {
	if err == nil || r == nil {
		return
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		r.ReportCode(int(errno), activity)
		return
	}
	r.ReportText(err.Error(), activity)
}

// LogReporter writes reports to a structured logger at error level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a reporter writing to logger. A nil logger
// discards reports.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportCode(code int, activity string) {
	r.logger.Error("operation failed",
		"activity", activity,
		"code", code,
		"error", syscall.Errno(code).Error(),
	)
}

func (r *LogReporter) ReportText(desc, activity string) {
	r.logger.Error("operation failed", "activity", activity, "error", desc)
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromVerbosity maps a count of -v flags to a level:
// 0 is warn, 1 is info, 2 or more is debug.
func LevelFromVerbosity(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// StatusAttr returns err's status flags as a log attribute.
func StatusAttr(err error) slog.Attr {
	return slog.String("status", nmr.StatusOf(err).Error())
}
