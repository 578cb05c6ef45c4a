package shim

import (
	"syscall"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/layout"
	"github.com/wippyai/wasm-emscripten/pathmap"
)

func negErrno(err error) int32 {
	return -int32(host.Errno(err))
}

// hostPath resolves the guest path at ptr through the context's mappings,
// falling back to the literal path when no mapping applies.
func hostPath(c *guest.Context, ptr uint32) string {
	raw := c.ReadCStr(ptr)
	if p, ok := pathmap.ResolveGuestPath(c.Mappings, raw); ok {
		return p
	}
	return c.ReadString(ptr)
}

// Chroot changes the host root to the literal guest path. Mappings are not
// applied. It returns 0 or a negated errno.
func Chroot(c *guest.Context, pathPtr uint32) int32 {
	path := c.ReadString(pathPtr)
	log(c).Debug("chroot", zap.String("path", path))
	if err := c.Host.Chroot(path); err != nil {
		return negErrno(err)
	}
	return 0
}

// Chdir changes the host working directory to the resolved guest path.
func Chdir(c *guest.Context, pathPtr uint32) int32 {
	path := hostPath(c, pathPtr)
	log(c).Debug("chdir", zap.String("path", path))
	if err := c.Host.Chdir(path); err != nil {
		return negErrno(err)
	}
	return 0
}

// Getcwd writes the guest's current directory and its NUL terminator to
// buf. It returns the number of bytes written, -ERANGE when size is too
// small, or the negated errno of a failed host query.
func Getcwd(c *guest.Context, buf, size uint32) int32 {
	var wdErr error
	getwd := func() (string, error) {
		dir, err := c.Host.Getwd()
		wdErr = err
		return dir, err
	}
	dir, ok := pathmap.CurrentDirectory(c.Mappings, getwd)
	if !ok {
		return negErrno(wdErr)
	}
	log(c).Debug("getcwd", zap.String("dir", dir), zap.Uint32("size", size))

	n := uint32(len(dir)) + 1
	if size < n {
		return -int32(syscall.ERANGE)
	}
	c.WriteToBuf(append([]byte(dir), 0), buf, n)
	return int32(n)
}

// Stat64 writes the status of the resolved guest path to buf.
func Stat64(c *guest.Context, pathPtr, buf uint32) int32 {
	return stat(c, "stat64", pathPtr, buf, c.Host.Stat)
}

// Lstat64 is Stat64 without following a final symlink.
func Lstat64(c *guest.Context, pathPtr, buf uint32) int32 {
	return stat(c, "lstat64", pathPtr, buf, c.Host.Lstat)
}

func stat(c *guest.Context, name string, pathPtr, buf uint32, fn func(string) (*host.Stat, error)) int32 {
	path := hostPath(c, pathPtr)
	log(c).Debug(name, zap.String("path", path), zap.Uint32("buf", buf))
	st, err := fn(path)
	if err != nil {
		return negErrno(err)
	}
	layout.WriteStat(c, buf, st)
	return 0
}
