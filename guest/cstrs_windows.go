//go:build windows

package guest

import "context"

// CountTerminatedCStrs is not implemented on Windows and returns 0.
func CountTerminatedCStrs(_ [][]byte) int {
	return 0
}

// CopyTerminatedArrayOfCStrs is not implemented on Windows and returns 0.
func (c *Context) CopyTerminatedArrayOfCStrs(_ context.Context, _ [][]byte) uint32 {
	return 0
}
