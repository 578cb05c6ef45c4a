package wasmemscripten

import "context"

// Memory is guest linear memory as seen from the host.
// wazero's api.Memory satisfies it directly.
type Memory interface {
	// Size returns the current size in bytes.
	Size() uint32
	// Read returns a view of byteCount bytes at offset. Writes to the view
	// are visible to the guest. ok is false when the range is out of bounds.
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Allocator reserves guest memory through one of the guest's own exports
// (malloc for the heap, stackAlloc for the stack).
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
}
