//go:build !windows

package guest

import (
	"context"

	"go.uber.org/zap"
)

// CountTerminatedCStrs counts the entries of a host string array up to its
// nil terminator.
func CountTerminatedCStrs(list [][]byte) int {
	n := 0
	for n < len(list) && list[n] != nil {
		n++
	}
	return n
}

// CopyTerminatedArrayOfCStrs is meant to copy a nil-terminated string array
// into guest memory. Only the counting half exists: it logs the count and
// returns 0.
// TODO: allocate the pointer array and copy each entry with CopyCStrIntoWasm.
func (c *Context) CopyTerminatedArrayOfCStrs(_ context.Context, list [][]byte) uint32 {
	n := CountTerminatedCStrs(list)
	c.Log().Debug("terminated cstr array not copied", zap.Int("count", n))
	return 0
}
