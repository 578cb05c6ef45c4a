//go:build linux || darwin

package host

import (
	"golang.org/x/sys/unix"
)

// System is the OS backed by the real process.
type System struct {
	// PasswdFile overrides DefaultPasswdFile.
	PasswdFile string
}

func (System) Chroot(path string) error {
	return unix.Chroot(path)
}

func (System) Chdir(path string) error {
	return unix.Chdir(path)
}

func (System) Getwd() (string, error) {
	return unix.Getwd()
}

func (System) Stat(path string) (*Stat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}
	return fromStatT(&st), nil
}

func (System) Lstat(path string) (*Stat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, err
	}
	return fromStatT(&st), nil
}

func (s System) LookupUID(uid uint32) (*Passwd, error) {
	file := s.PasswdFile
	if file == "" {
		file = DefaultPasswdFile
	}
	return lookupUID(file, uid)
}

func fromStatT(st *unix.Stat_t) *Stat {
	atime, _ := st.Atim.Unix()
	mtime, _ := st.Mtim.Unix()
	ctime, _ := st.Ctim.Unix()
	return &Stat{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Nlink:   uint64(st.Nlink),
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   atime,
		Mtime:   mtime,
		Ctime:   ctime,
		Mode:    uint32(st.Mode),
		UID:     st.Uid,
		GID:     st.Gid,
	}
}
