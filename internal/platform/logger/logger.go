package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output keeps audit-adjacent log lines
// machine-parseable for the alerting pipeline.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
