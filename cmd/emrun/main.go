package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/engine"
	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/linker"
	"github.com/wippyai/wasm-emscripten/pathmap"
	"github.com/wippyai/wasm-emscripten/runtime"
	"github.com/wippyai/wasm-emscripten/shim"
)

// mapdirFlag collects repeated -mapdir guest:host flags.
type mapdirFlag struct {
	table *pathmap.Table
}

func (f *mapdirFlag) String() string {
	if f == nil {
		return ""
	}
	return f.table.String()
}

func (f *mapdirFlag) Set(s string) error {
	return f.table.Add(s)
}

type options struct {
	wasmFile    string
	funcName    string
	params      string
	args        string
	env         string
	configFile  string
	stdin       string
	mappings    *pathmap.Table
	memoryLimit uint
	inspect     bool
	trapMissing bool
	verbose     bool
	interactive bool
}

func main() {
	opts := options{mappings: pathmap.NewTable()}
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to Emscripten wasm file")
	flag.StringVar(&opts.funcName, "func", "", "Exported function to call instead of main")
	flag.StringVar(&opts.params, "params", "", "Parameters for -func (comma-separated)")
	flag.StringVar(&opts.args, "args", "", "Program arguments after argv[0] (comma-separated)")
	flag.StringVar(&opts.env, "env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
	flag.StringVar(&opts.configFile, "config", "", "YAML file with mapdirs")
	flag.StringVar(&opts.stdin, "stdin", "", "Stdin data (default: process stdin)")
	flag.Var(&mapdirFlag{table: opts.mappings}, "mapdir", "Directory mapping guest:host (repeatable)")
	flag.UintVar(&opts.memoryLimit, "memory-limit", 0, "Memory limit in 64KiB pages")
	flag.BoolVar(&opts.inspect, "inspect", false, "Print the linked module layout and exit")
	flag.BoolVar(&opts.trapMissing, "trap-missing", false, "Link missing imports to trapping stubs")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: emrun -wasm <file.wasm> [-args a,b] [-mapdir guest:host]... [-env K=V,...]")
		fmt.Fprintln(os.Stderr, "       emrun -wasm <file.wasm> -func name [-params 1,2]")
		fmt.Fprintln(os.Stderr, "       emrun -wasm <file.wasm> -inspect")
		fmt.Fprintln(os.Stderr, "       emrun -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	log := zap.NewNop()
	if opts.verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		setLoggers(log)
	}

	if opts.interactive {
		if err := runInteractive(opts, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(opts, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	_ = log.Sync()
	os.Exit(int(code))
}

func setLoggers(log *zap.Logger) {
	runtime.SetLogger(log.Named("runtime"))
	linker.SetLogger(log.Named("linker"))
	engine.SetLogger(log.Named("engine"))
	shim.SetLogger(log.Named("shim"))
	guest.SetLogger(log.Named("guest"))
}

// config builds the runtime configuration from the flags. Mappings given
// with -mapdir override those of the -config file.
func (o options) config(log *zap.Logger, stdin io.Reader, stdout, stderr io.Writer) (*runtime.Config, error) {
	mappings := o.mappings
	if o.configFile != "" {
		cfg, err := pathmap.LoadFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		mappings = cfg.Mapdirs
		for _, k := range o.mappings.Keys() {
			h, _ := o.mappings.Get(k)
			mappings.Set(k, h)
		}
	}

	name := strings.TrimSuffix(filepath.Base(o.wasmFile), filepath.Ext(o.wasmFile))
	return &runtime.Config{
		Mappings:         mappings,
		Stdin:            stdin,
		Stdout:           stdout,
		Stderr:           stderr,
		Logger:           log,
		Name:             name,
		Args:             append([]string{name}, splitList(o.args)...),
		Env:              splitList(o.env),
		MemoryLimitPages: uint32(o.memoryLimit),
		TrapMissing:      o.trapMissing,
	}, nil
}

func (o options) load(ctx context.Context, cfg *runtime.Config) (*runtime.Module, error) {
	data, err := os.ReadFile(o.wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	mod, err := runtime.Load(ctx, data, cfg)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return mod, nil
}

// run loads and runs the guest and returns its exit code. With -func the
// named export is called instead and its results are printed.
func run(o options, log *zap.Logger) (uint32, error) {
	ctx := context.Background()

	var stdin io.Reader = os.Stdin
	if o.stdin != "" {
		stdin = strings.NewReader(o.stdin)
	}
	cfg, err := o.config(log, stdin, os.Stdout, os.Stderr)
	if err != nil {
		return 0, err
	}

	mod, err := o.load(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer mod.Close(ctx)

	if o.inspect {
		printInfo(os.Stdout, o.wasmFile, mod)
		return 0, nil
	}

	var params []uint64
	var fn funcInfo
	if o.funcName != "" {
		var ok bool
		if fn, ok = lookupFunc(mod.Descriptor(), o.funcName); !ok {
			return 0, fmt.Errorf("no exported function %q", o.funcName)
		}
		if params, err = parseParams(o.params, fn.typ); err != nil {
			return 0, fmt.Errorf("%s: %w", fn.name, err)
		}
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return 0, fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	if o.funcName == "" {
		return inst.Run(ctx)
	}

	results, err := inst.Call(ctx, fn.name, params...)
	if err != nil {
		return 0, err
	}
	fmt.Printf("%s\n", formatResults(results, fn.typ))
	return 0, nil
}
