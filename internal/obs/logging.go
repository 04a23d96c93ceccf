// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
)

// Logger is the structured logger shared by the service. Defaults to a
// text handler so tests and tools log sanely without calling InitLogger.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// InitLogger switches Logger to the production JSON handler.
func InitLogger() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
