package guest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/wasm-emscripten/errors"
)

// Export names tried, in order, when binding the guest's allocators.
var (
	HeapAllocExports  = []string{"malloc", "_malloc"}
	StackAllocExports = []string{"stackAlloc", "_stackAlloc"}
)

// WriteToBuf copies exactly n bytes of src to dest and returns dest. There is
// no length discovery: src must hold at least n bytes.
func (c *Context) WriteToBuf(src []byte, dest, n uint32) uint32 {
	if uint64(len(src)) < uint64(n) {
		errors.Fatal(errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Detail("source holds %d bytes, %d requested", len(src), n).
			Build())
	}
	copy(c.Mem().Slice(dest, n), src[:n])
	return dest
}

// CopyCStrIntoWasm copies a host C string into a fresh heap allocation of
// len+1 bytes and returns its offset. src ends at its first NUL, or at the
// end of the slice when it has none. The text must be valid UTF-8.
func (c *Context) CopyCStrIntoWasm(ctx context.Context, src []byte) uint32 {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	if !utf8.Valid(src) {
		errors.Fatal(errors.InvalidUTF8(errors.PhaseMarshal, []string{"cstr"}, src))
	}

	size := uint32(len(src)) + 1
	ptr := c.HeapAlloc(ctx, size)
	buf := c.Mem().Slice(ptr, size)
	copy(buf, src)
	buf[len(src)] = 0
	return ptr
}

// CopyStringIntoWasm is CopyCStrIntoWasm for Go strings.
func (c *Context) CopyStringIntoWasm(ctx context.Context, s string) uint32 {
	return c.CopyCStrIntoWasm(ctx, []byte(s))
}

// HeapAlloc reserves size bytes through the heap allocator. A missing
// allocator, a trap inside it or a NULL result abort the call.
func (c *Context) HeapAlloc(ctx context.Context, size uint32) uint32 {
	if c.Heap == nil {
		errors.Fatal(errors.MissingExport(errors.PhaseMarshal, HeapAllocExports...))
	}
	ptr, err := c.Heap.Alloc(ctx, size)
	if err != nil {
		errors.Fatal(errors.AllocationFailed(errors.PhaseMarshal, HeapAllocExports[0], size, err))
	}
	if ptr == 0 {
		errors.Fatal(errors.AllocationFailed(errors.PhaseMarshal, HeapAllocExports[0], size, fmt.Errorf("returned NULL")))
	}
	return ptr
}

// ReadCStr returns the bytes of the NUL-terminated string at offset,
// without the terminator. The result aliases guest memory.
func (c *Context) ReadCStr(offset uint32) []byte {
	mem := c.Mem()
	size := mem.Size()
	if offset >= size {
		errors.Fatal(errors.OutOfBounds(errors.PhaseMarshal, offset, 1, size))
	}
	rest := mem.Slice(offset, size-offset)
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		errors.Fatal(errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
			Value(offset).
			Detail("string at %d is not terminated before the end of memory", offset).
			Build())
	}
	return rest[:end]
}

// ReadString reads the C string at offset. Invalid UTF-8 aborts the call.
func (c *Context) ReadString(offset uint32) string {
	raw := c.ReadCStr(offset)
	if !utf8.Valid(raw) {
		errors.Fatal(errors.InvalidUTF8(errors.PhaseMarshal, []string{"cstr"}, raw))
	}
	return string(raw)
}

// ReadStringLossy reads the C string at offset, replacing invalid UTF-8
// sequences with U+FFFD.
func (c *Context) ReadStringLossy(offset uint32) string {
	return strings.ToValidUTF8(string(c.ReadCStr(offset)), "\uFFFD")
}
