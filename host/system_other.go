//go:build !linux && !darwin

package host

import (
	"os"
	"syscall"
)

// System is the OS backed by the real process. Only the directory
// primitives are available on this platform.
type System struct {
	PasswdFile string
}

func (System) Chroot(string) error {
	return syscall.ENOSYS
}

func (System) Chdir(path string) error {
	return os.Chdir(path)
}

func (System) Getwd() (string, error) {
	return os.Getwd()
}

func (System) Stat(string) (*Stat, error) {
	return nil, syscall.ENOSYS
}

func (System) Lstat(string) (*Stat, error) {
	return nil, syscall.ENOSYS
}

func (System) LookupUID(uint32) (*Passwd, error) {
	return nil, syscall.ENOSYS
}
