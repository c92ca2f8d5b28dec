// Package logging sets up the process-wide slog.Logger, matching the
// teacher's own logging choice (plain log/slog, no third-party logging
// library) at a level driven by TUAI_LOG_LEVEL.
package logging

import (
	"log/slog"
	"os"
)

// New builds a text-handler slog.Logger at the given level string
// ("debug"/"info"/"warn"/"error"); an unrecognized level falls back to
// info rather than failing, since by the time logging is set up config
// validation has already rejected bad values.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
