package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/emscripten"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/linker"
	"github.com/wippyai/wasm-emscripten/module"
)

// WASINamespace is the module name of the WASI preview1 host functions.
const WASINamespace = linker.WASINamespace

// WazeroEngine owns the wazero runtime that every module of one guest is
// instantiated into.
type WazeroEngine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal, required to
	// define the shared memory of a pthreads build.
	EnableThreads bool
}

// NewWazeroEngine creates an engine. Calls are aborted when their context
// is canceled.
func NewWazeroEngine(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
	}

	return &WazeroEngine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Runtime returns the underlying wazero runtime.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases the runtime and every module instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InitWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(WASINamespace) == nil {
		builder := e.runtime.NewHostModuleBuilder(WASINamespace)
		wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

// Compile compiles a guest or synthesized module.
func (e *WazeroEngine) Compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return compiled, nil
}

// Registrar adds host functions to a module builder.
type Registrar func(wazero.HostModuleBuilder) wazero.HostModuleBuilder

// InstantiateHost instantiates linker.HostModule with the functions of
// every registrar, plus the invoke_* trampolines wazero generates for the
// guest's own declarations.
func (e *WazeroEngine) InstantiateHost(ctx context.Context, guest wazero.CompiledModule, registrars ...Registrar) (api.Module, error) {
	builder := e.runtime.NewHostModuleBuilder(linker.HostModule)
	for _, register := range registrars {
		builder = register(builder)
	}
	if guest != nil {
		exporter, err := emscripten.NewFunctionExporterForModule(guest)
		if err != nil {
			return nil, fmt.Errorf("emscripten exporter: %w", err)
		}
		exporter.ExportFunctions(builder)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", linker.HostModule, err)
	}
	return mod, nil
}

// Stubs returns a Registrar exporting a trapping function for every stub.
func Stubs(stubs []linker.Stub) Registrar {
	return func(b wazero.HostModuleBuilder) wazero.HostModuleBuilder {
		for _, st := range stubs {
			b = b.NewFunctionBuilder().
				WithGoModuleFunction(trap(st.Namespace, st.Name), ValueTypes(st.Type.Params), ValueTypes(st.Type.Results)).
				WithName(st.HostName).
				Export(st.HostName)
		}
		return b
	}
}

func trap(namespace, name string) api.GoModuleFunc {
	return func(context.Context, api.Module, []uint64) {
		Logger().Error("guest called unresolved import",
			zap.String("namespace", namespace),
			zap.String("name", name))
		errors.Fatal(errors.Unsupported(errors.PhaseHost, namespace+"."+name+" is not implemented"))
	}
}

// ValueTypes converts descriptor value types to wazero's. Both use the
// binary encoding bytes.
func ValueTypes(ts []module.ValType) []api.ValueType {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		out[i] = api.ValueType(t)
	}
	return out
}

// FuncType converts a wazero signature to a descriptor one.
func FuncType(params, results []api.ValueType) module.FuncType {
	ft := module.FuncType{
		Params:  make([]module.ValType, len(params)),
		Results: make([]module.ValType, len(results)),
	}
	for i, p := range params {
		ft.Params[i] = module.ValType(p)
	}
	for i, r := range results {
		ft.Results[i] = module.ValType(r)
	}
	return ft
}
