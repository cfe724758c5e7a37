package logger

import (
	"github.com/firedesk/firedesk/internal/config"
)

// NewLogger creates a Logger configured from the application configuration.
// This is the constructor wired into the fx graph.
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	return NewLoggerWithLevel(cfg.Logging.Level)
}
