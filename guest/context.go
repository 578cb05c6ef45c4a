package guest

import (
	"context"
	"io"

	"go.uber.org/zap"

	wasmemscripten "github.com/wippyai/wasm-emscripten"
	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/pathmap"
)

// Context is the execution context of one guest instance: its linear
// memory, the allocator exports it was linked with, and the host resources
// its shims may touch.
//
// A Context is not safe for concurrent use. The instance that owns it runs
// one call at a time and every shim borrows it for the duration of that call.
type Context struct {
	Memory wasmemscripten.Memory

	// Heap allocates through malloc. Required by every copy that creates a
	// new guest object.
	Heap wasmemscripten.Allocator

	// Stack allocates through stackAlloc. Optional: only the stack helpers
	// need it.
	Stack wasmemscripten.Allocator

	Mappings *pathmap.Table
	Host     host.OS
	Stdout   io.Writer
	Logger   *zap.Logger
}

// Log returns the context's logger, falling back to the package logger.
func (c *Context) Log() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}

// Mem returns the bounds-checked accessor over the context's memory.
func (c *Context) Mem() Accessor {
	return Accessor{mem: c.Memory}
}

type contextKey struct{}

// WithContext attaches c to ctx. Host functions called by wazero receive
// the context.Context of the guest call and recover c with FromContext.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the guest context attached by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok && c != nil
}
