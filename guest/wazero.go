package guest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// FuncAllocator adapts a guest allocator export such as malloc or
// stackAlloc, with signature (i32) -> i32, to the Allocator interface.
type FuncAllocator struct {
	Fn   api.Function
	Name string
}

// BindAllocator returns an allocator over the first of names that mod
// exports, or nil when it exports none.
func BindAllocator(mod api.Module, names ...string) *FuncAllocator {
	for _, name := range names {
		if fn := mod.ExportedFunction(name); fn != nil {
			return &FuncAllocator{Fn: fn, Name: name}
		}
	}
	return nil
}

// Alloc calls the export with size and returns the guest offset it yields.
func (a *FuncAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := a.Fn.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("%s(%d): %w", a.Name, size, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%s returned %d results, expected 1", a.Name, len(results))
	}
	return api.DecodeU32(results[0]), nil
}
