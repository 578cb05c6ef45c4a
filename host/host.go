package host

import (
	"errors"
	"syscall"
)

// ErrNoSuchUser is returned by LookupUID when no entry matches.
var ErrNoSuchUser = errors.New("no such user")

// OS is the set of host primitives the shims call. Every method is
// synchronous. Failures are reported as syscall.Errno values where the
// platform provides one so that shims can forward them to the guest.
type OS interface {
	Chroot(path string) error
	Chdir(path string) error
	Getwd() (string, error)
	Stat(path string) (*Stat, error)
	Lstat(path string) (*Stat, error)
	LookupUID(uid uint32) (*Passwd, error)
}

// Passwd is a host password database entry.
type Passwd struct {
	Name   string
	Passwd string
	Gecos  string
	Dir    string
	Shell  string
	UID    uint32
	GID    uint32
}

// Stat is a host file status record, widened to the largest field sizes
// any supported platform reports. Times are in seconds since the epoch.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Nlink   uint64
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   int64
	Mtime   int64
	Ctime   int64
	Mode    uint32
	UID     uint32
	GID     uint32
}

// Errno extracts the errno carried by err. Errors without one map to EIO.
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
