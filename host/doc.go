// Package host provides the operating system primitives behind the shims:
// change-root, directory changes, file status and password lookup.
//
// System talks to the real process through golang.org/x/sys/unix on Linux
// and macOS. Other platforms report ENOSYS for everything but the directory
// calls. Tests and embedders substitute their own OS implementation.
package host
