package layout

import (
	"context"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/host"
)

// Guest passwd field offsets. Every field is a 32-bit value; the string
// fields hold offsets of NUL-terminated copies in guest memory.
const (
	PasswdName   = 0
	PasswdPasswd = 4
	PasswdUID    = 8
	PasswdGID    = 12
	PasswdGecos  = 16
	PasswdDir    = 20
	PasswdShell  = 24

	PasswdStructSize = 28
	PasswdAlign      = 4
)

// WritePasswd materializes pw in guest memory: the struct and each string
// field get their own heap allocation. It returns the struct offset.
//
// Allocations are not rolled back if a later step aborts the call.
func WritePasswd(ctx context.Context, c *guest.Context, pw *host.Passwd) uint32 {
	mem := c.Mem()
	ptr := c.HeapAlloc(ctx, PasswdStructSize)
	mem.PointerAligned(errors.PhaseLayout, []string{"passwd"}, ptr, PasswdAlign)

	name := c.CopyStringIntoWasm(ctx, pw.Name)
	passwd := c.CopyStringIntoWasm(ctx, pw.Passwd)
	gecos := c.CopyStringIntoWasm(ctx, pw.Gecos)
	dir := c.CopyStringIntoWasm(ctx, pw.Dir)
	shell := c.CopyStringIntoWasm(ctx, pw.Shell)

	mem.WriteU32(ptr+PasswdName, name)
	mem.WriteU32(ptr+PasswdPasswd, passwd)
	mem.WriteU32(ptr+PasswdUID, pw.UID)
	mem.WriteU32(ptr+PasswdGID, pw.GID)
	mem.WriteU32(ptr+PasswdGecos, gecos)
	mem.WriteU32(ptr+PasswdDir, dir)
	mem.WriteU32(ptr+PasswdShell, shell)
	return ptr
}

// ReadPasswd decodes a guest passwd struct.
func ReadPasswd(c *guest.Context, ptr uint32) *host.Passwd {
	mem := c.Mem()
	str := func(off uint32) string {
		p := mem.ReadU32(ptr + off)
		if p == 0 {
			return ""
		}
		return c.ReadString(p)
	}
	return &host.Passwd{
		Name:   str(PasswdName),
		Passwd: str(PasswdPasswd),
		UID:    mem.ReadU32(ptr + PasswdUID),
		GID:    mem.ReadU32(ptr + PasswdGID),
		Gecos:  str(PasswdGecos),
		Dir:    str(PasswdDir),
		Shell:  str(PasswdShell),
	}
}
