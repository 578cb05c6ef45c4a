//go:build linux || darwin

package host_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/wippyai/wasm-emscripten/host"
)

func TestSystemStat(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o640); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(file, link); err != nil {
		t.Fatal(err)
	}

	var sys host.System
	st, err := sys.Stat(link)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != 5 {
		t.Errorf("Size = %d, want 5", st.Size)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFREG {
		t.Errorf("Mode = %o, want regular file", st.Mode)
	}
	if st.Ino == 0 || st.Nlink == 0 {
		t.Errorf("Ino = %d, Nlink = %d", st.Ino, st.Nlink)
	}

	lst, err := sys.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if lst.Mode&syscall.S_IFMT != syscall.S_IFLNK {
		t.Errorf("Lstat Mode = %o, want symlink", lst.Mode)
	}
}

func TestSystemStatMissing(t *testing.T) {
	var sys host.System
	_, err := sys.Stat(filepath.Join(t.TempDir(), "missing"))
	if host.Errno(err) != syscall.ENOENT {
		t.Errorf("Stat error = %v, want ENOENT", err)
	}
}

func TestSystemLookupUIDFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "passwd")
	if err := os.WriteFile(file, []byte(passwdDB), 0o644); err != nil {
		t.Fatal(err)
	}
	sys := host.System{PasswdFile: file}
	pw, err := sys.LookupUID(1)
	if err != nil {
		t.Fatalf("LookupUID: %v", err)
	}
	if pw.Name != "daemon" || pw.Shell != "/usr/sbin/nologin" {
		t.Errorf("LookupUID = %+v", pw)
	}
}

func TestSystemGetwd(t *testing.T) {
	var sys host.System
	got, err := sys.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	want, _ := os.Getwd()
	if got != want {
		t.Errorf("Getwd = %q, want %q", got, want)
	}
}

func TestSystemChrootUnprivileged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root")
	}
	var sys host.System
	err := sys.Chroot(t.TempDir())
	if !errors.Is(err, syscall.EPERM) {
		t.Errorf("Chroot error = %v, want EPERM", err)
	}
}
