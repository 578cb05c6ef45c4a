package shim

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/guest"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the shim package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the shim package's logger.
// This must be called before any guest is instantiated.
func SetLogger(l *zap.Logger) {
	logger = l
}

// log prefers the guest's own logger so that per-instance fields survive.
func log(c *guest.Context) *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}
