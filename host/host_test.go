package host_test

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"github.com/wippyai/wasm-emscripten/host"
)

const passwdDB = `# local users
root:x:0:0:root:/root:/bin/bash
broken:line
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin
alice:x:1000:100:Alice Liddell,,,:/home/alice:/bin/zsh
`

func TestParsePasswd(t *testing.T) {
	pw, err := host.ParsePasswd(strings.NewReader(passwdDB), 1000)
	if err != nil {
		t.Fatalf("ParsePasswd: %v", err)
	}
	want := host.Passwd{
		Name:   "alice",
		Passwd: "x",
		UID:    1000,
		GID:    100,
		Gecos:  "Alice Liddell,,,",
		Dir:    "/home/alice",
		Shell:  "/bin/zsh",
	}
	if *pw != want {
		t.Errorf("ParsePasswd = %+v, want %+v", *pw, want)
	}
}

func TestParsePasswdMissing(t *testing.T) {
	_, err := host.ParsePasswd(strings.NewReader(passwdDB), 4242)
	if !errors.Is(err, host.ErrNoSuchUser) {
		t.Errorf("error = %v, want ErrNoSuchUser", err)
	}
}

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"bare", syscall.ENOENT, syscall.ENOENT},
		{"wrapped", fmt.Errorf("stat: %w", syscall.EACCES), syscall.EACCES},
		{"no errno", errors.New("boom"), syscall.EIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := host.Errno(tt.err); got != tt.want {
				t.Errorf("Errno = %v, want %v", got, tt.want)
			}
		})
	}
}
