package shim

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/shim/internal/cformat"
)

// Putchar writes the low byte of ch to the guest's stdout.
func Putchar(c *guest.Context, ch int32) {
	if c.Stdout == nil {
		return
	}
	if _, err := c.Stdout.Write([]byte{byte(ch)}); err != nil {
		log(c).Debug("putchar write failed", zap.Error(err))
	}
}

// Printf formats the C string at format with the va_list at varargs and
// writes the result to stdout. It returns the number of bytes written, or
// -1 when the write fails.
func Printf(c *guest.Context, format, varargs uint32) int32 {
	if ce := log(c).Check(zap.DebugLevel, "printf"); ce != nil {
		ce.Write(zap.String("format", c.ReadStringLossy(format)), zap.Uint32("varargs", varargs))
	}

	out := cformat.Format(c.ReadCStr(format), &vaList{c: c, ptr: varargs})
	if c.Stdout == nil {
		return int32(len(out))
	}
	n, err := c.Stdout.Write(out)
	if err != nil {
		log(c).Debug("printf write failed", zap.Error(err))
		return -1
	}
	return int32(n)
}

// vaList walks a wasm32 va_list: every argument sits at its natural
// alignment, 4 bytes for 32-bit values, 8 for 64-bit ones and 16 for
// long double.
type vaList struct {
	c   *guest.Context
	ptr uint32
}

func (v *vaList) next(size uint32) uint32 {
	v.ptr = (v.ptr + size - 1) &^ (size - 1)
	at := v.ptr
	v.ptr += size
	return at
}

func (v *vaList) Next32() uint32 {
	return v.c.Mem().ReadU32(v.next(4))
}

func (v *vaList) Next64() uint64 {
	return v.c.Mem().ReadU64(v.next(8))
}

func (v *vaList) Next128() (lo, hi uint64) {
	at := v.next(16)
	mem := v.c.Mem()
	return mem.ReadU64(at), mem.ReadU64(at + 8)
}

func (v *vaList) CString(ptr uint32) []byte {
	return v.c.ReadCStr(ptr)
}
