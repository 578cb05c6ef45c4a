package runtime

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/pathmap"
)

// DefaultName is the guest module name when Config.Name is empty.
const DefaultName = "guest"

// Config configures Load. The zero value runs the guest against the real
// host with no directory mappings and the process's standard streams.
type Config struct {
	// Mappings translates guest paths to host paths. Nil means every guest
	// path is used as given.
	Mappings *pathmap.Table

	// Host performs the OS primitives behind the shims. Defaults to
	// host.System.
	Host host.OS

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *zap.Logger

	// Globals overrides the values of imported integer globals by name.
	Globals map[string]int64

	Name string

	// Args are passed to main and to WASI. Args[0] is the program name.
	Args []string

	// Env holds KEY=VALUE pairs exposed through WASI.
	Env []string

	// MemoryLimitPages caps guest memory, in 64KiB pages. 0 means the
	// engine default.
	MemoryLimitPages uint32

	// TrapMissing links imports no host function provides to stubs that
	// trap when called, instead of failing Load.
	TrapMissing bool
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Host == nil {
		out.Host = host.System{}
	}
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}
	if out.Name == "" {
		out.Name = DefaultName
	}
	if len(out.Args) == 0 {
		out.Args = []string{out.Name}
	}
	if out.Logger == nil {
		out.Logger = Logger()
	}
	return out
}
