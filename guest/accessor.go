package guest

import (
	"encoding/binary"

	wasmemscripten "github.com/wippyai/wasm-emscripten"
	"github.com/wippyai/wasm-emscripten/errors"
)

// Accessor turns guest offsets into host views of linear memory. It is the
// single place where bounds are checked: every failure panics with a fatal
// *errors.Error, which aborts the current guest call.
type Accessor struct {
	mem wasmemscripten.Memory
}

// Size returns the current memory size in bytes.
func (a Accessor) Size() uint32 {
	return a.mem.Size()
}

// Slice returns a writable view of length bytes at offset.
func (a Accessor) Slice(offset, length uint32) []byte {
	if a.mem == nil {
		errors.Fatal(errors.NotInitialized(errors.PhaseMarshal, "guest memory"))
	}
	buf, ok := a.mem.Read(offset, length)
	if !ok {
		errors.Fatal(errors.OutOfBounds(errors.PhaseMarshal, offset, length, a.mem.Size()))
	}
	return buf
}

// PointerAligned asserts that offset is a multiple of align. A mismatch is
// fatal and reported under phase.
func (a Accessor) PointerAligned(phase errors.Phase, path []string, offset, align uint32) {
	if align > 1 && offset%align != 0 {
		errors.Fatal(errors.Misaligned(phase, path, offset, align))
	}
}

func (a Accessor) ReadU8(offset uint32) uint8 {
	return a.Slice(offset, 1)[0]
}

func (a Accessor) ReadU32(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(a.Slice(offset, 4))
}

func (a Accessor) ReadU64(offset uint32) uint64 {
	return binary.LittleEndian.Uint64(a.Slice(offset, 8))
}

func (a Accessor) WriteU8(offset uint32, v uint8) {
	a.Slice(offset, 1)[0] = v
}

func (a Accessor) WriteU32(offset uint32, v uint32) {
	binary.LittleEndian.PutUint32(a.Slice(offset, 4), v)
}

func (a Accessor) WriteU64(offset uint32, v uint64) {
	binary.LittleEndian.PutUint64(a.Slice(offset, 8), v)
}

// Copy moves n bytes from src to dst inside guest memory. Overlapping
// ranges are handled like memmove.
func (a Accessor) Copy(dst, src, n uint32) {
	if n == 0 {
		return
	}
	copy(a.Slice(dst, n), a.Slice(src, n))
}
