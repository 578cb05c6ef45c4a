package runtime

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/engine"
	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/linker"
	"github.com/wippyai/wasm-emscripten/module"
)

// Module is a loaded guest ready to be instantiated. Module names are
// unique within its engine, so at most one Instance is live at a time.
type Module struct {
	engine   *engine.WazeroEngine
	compiled wazero.CompiledModule
	desc     *module.Descriptor
	plan     *linker.Plan
	live     *Instance
	synths   []engine.CompiledSynth
	cfg      Config
	meta     module.Metadata
	mu       sync.Mutex
	hasMeta  bool
}

// Descriptor returns the parsed guest.
func (m *Module) Descriptor() *module.Descriptor {
	return m.desc
}

// Metadata returns the dynamic base and dynamic-top pointer recovered from
// the guest's globals. The second result is false when the guest carries
// none.
func (m *Module) Metadata() (module.Metadata, bool) {
	return m.meta, m.hasMeta
}

// MemoryBounds returns the limits of the guest's imported memory.
func (m *Module) MemoryBounds() module.MemoryBounds {
	return m.plan.Memory
}

// TableBounds returns the limits of the guest's imported table.
func (m *Module) TableBounds() module.TableBounds {
	return m.plan.Table
}

// Globals returns the value linked into each imported integer global.
func (m *Module) Globals() map[string]int64 {
	out := make(map[string]int64, len(m.plan.Globals))
	for k, v := range m.plan.Globals {
		out[k] = v
	}
	return out
}

// Stubs returns the imports linked to trapping stubs.
func (m *Module) Stubs() []linker.Stub {
	return m.plan.Stubs
}

// Close closes any live instance and releases the engine.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	m.live = nil
	m.mu.Unlock()
	return m.engine.Close(ctx)
}

// Instantiate instantiates the synthesized namespaces and then the guest,
// binds its allocator exports and runs its static constructors.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInstantiation).
			Detail("module %s already has a live instance", m.cfg.Name).
			Build()
	}

	namespaces, err := m.engine.InstantiateSynth(ctx, m.synths)
	if err != nil {
		return nil, errors.Instantiation("namespaces", err)
	}
	mem := exportedMemory(namespaces, m.plan.Memory)
	if mem == nil {
		engine.CloseAll(ctx, namespaces)
		return nil, errors.NotInitialized(errors.PhaseRuntime, "memory "+m.plan.Memory.Module+"."+m.plan.Memory.Name)
	}

	log := m.cfg.Logger.With(zap.String("module", m.cfg.Name))
	gctx := &guest.Context{
		Memory:   mem,
		Mappings: m.cfg.Mappings,
		Host:     m.cfg.Host,
		Stdout:   m.cfg.Stdout,
		Logger:   log,
	}

	mod, err := m.engine.Runtime().InstantiateModule(guest.WithContext(ctx, gctx), m.compiled, m.moduleConfig())
	if err != nil {
		engine.CloseAll(ctx, namespaces)
		return nil, errors.Instantiation("guest", err)
	}

	// Assigned only when found: a nil *FuncAllocator in the interface
	// would not compare equal to nil.
	if heap := guest.BindAllocator(mod, guest.HeapAllocExports...); heap != nil {
		gctx.Heap = heap
	}
	if stack := guest.BindAllocator(mod, guest.StackAllocExports...); stack != nil {
		gctx.Stack = stack
	}

	inst := &Instance{
		module:     m,
		guest:      mod,
		namespaces: namespaces,
		gctx:       gctx,
		memory:     mem,
	}
	if err := inst.initialize(ctx); err != nil {
		inst.closeModules(ctx)
		return nil, err
	}

	log.Debug("instantiated",
		zap.Uint32("memory_bytes", mem.Size()),
		zap.Bool("heap", gctx.Heap != nil),
		zap.Bool("stack", gctx.Stack != nil))
	m.live = inst
	return inst, nil
}

func (m *Module) moduleConfig() wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName(m.cfg.Name).
		WithStartFunctions().
		WithStdout(m.cfg.Stdout).
		WithStderr(m.cfg.Stderr).
		WithArgs(m.cfg.Args...).
		WithSysWalltime().
		WithSysNanotime()
	if m.cfg.Stdin != nil {
		cfg = cfg.WithStdin(m.cfg.Stdin)
	}
	for _, kv := range m.cfg.Env {
		k, v, _ := strings.Cut(kv, "=")
		cfg = cfg.WithEnv(k, v)
	}
	return cfg
}

// release is called by Instance.Close.
func (m *Module) release(inst *Instance) {
	m.mu.Lock()
	if m.live == inst {
		m.live = nil
	}
	m.mu.Unlock()
}

func exportedMemory(namespaces []api.Module, b module.MemoryBounds) api.Memory {
	for _, ns := range namespaces {
		if ns.Name() == b.Module {
			return ns.ExportedMemory(b.Name)
		}
	}
	return nil
}
