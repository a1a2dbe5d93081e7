package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. It is constructed once in
// main and passed explicitly into every component; nothing reads a global.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
