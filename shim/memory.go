package shim

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/guest"
)

// MemcpyBig copies n bytes from src to dest inside guest memory and
// returns dest. Overlapping ranges behave like memmove.
func MemcpyBig(c *guest.Context, dest, src, n uint32) uint32 {
	log(c).Debug("emscripten_memcpy_big",
		zap.Uint32("dest", dest), zap.Uint32("src", src), zap.Uint32("len", n))
	c.Mem().Copy(dest, src, n)
	return dest
}
