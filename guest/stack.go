package guest

import (
	"context"
	"math"

	"github.com/wippyai/wasm-emscripten/errors"
)

// AllocateOnStack reserves count elements of elemSize bytes through the
// guest's stackAlloc export. The region is reclaimed by the guest's own
// frame discipline and must not be freed. It returns the offset and a
// writable view of the region.
func (c *Context) AllocateOnStack(ctx context.Context, count, elemSize uint32) (uint32, []byte) {
	size := uint64(count) * uint64(elemSize)
	if size > math.MaxUint32 {
		errors.Fatal(errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Detail("stack allocation of %d x %d bytes overflows", count, elemSize).
			Build())
	}
	if c.Stack == nil {
		errors.Fatal(errors.MissingExport(errors.PhaseMarshal, StackAllocExports...))
	}
	ptr, err := c.Stack.Alloc(ctx, uint32(size))
	if err != nil {
		errors.Fatal(errors.AllocationFailed(errors.PhaseMarshal, StackAllocExports[0], uint32(size), err))
	}
	return ptr, c.Mem().Slice(ptr, uint32(size))
}

// AllocateCStrOnStack copies s and a terminating NUL onto the guest stack.
func (c *Context) AllocateCStrOnStack(ctx context.Context, s string) (uint32, []byte) {
	ptr, buf := c.AllocateOnStack(ctx, uint32(len(s))+1, 1)
	copy(buf, s)
	buf[len(s)] = 0
	return ptr, buf
}
