package testhelpers

import (
	"github.com/jonesrussell/goharvest/internal/logger"
)

// NewTestLogger creates a logger suitable for testing (discards output).
func NewTestLogger() logger.Logger {
	return logger.NewNopLogger()
}
