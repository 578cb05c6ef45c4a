package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/engine"
	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/linker"
	"github.com/wippyai/wasm-emscripten/module"
	"github.com/wippyai/wasm-emscripten/shim"
)

// Load parses an Emscripten guest, links its imports against the shim and
// compiles everything it needs into a fresh engine. The returned Module owns
// the engine; Close it when done.
func Load(ctx context.Context, wasm []byte, cfg *Config) (*Module, error) {
	c := cfg.withDefaults()

	desc, err := module.Parse(wasm)
	if err != nil {
		return nil, errors.Load("parse module", err)
	}
	if !module.IsEmscripten(desc) {
		return nil, errors.InvalidInput(errors.PhaseLoad, "not an Emscripten module: env.emscripten_memcpy_big is not imported")
	}

	plan, err := linker.Link(desc, linker.Options{
		Host:        hostTypes(),
		Globals:     c.Globals,
		TrapMissing: c.TrapMissing,
	})
	if err != nil {
		return nil, err
	}
	meta, hasMeta := module.EmscriptenMetadata(desc)

	eng, err := engine.NewWazeroEngine(ctx, &engine.Config{
		MemoryLimitPages: c.MemoryLimitPages,
		EnableThreads:    plan.Memory.Shared,
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	m := &Module{
		engine:  eng,
		desc:    desc,
		plan:    plan,
		cfg:     c,
		meta:    meta,
		hasMeta: hasMeta,
	}
	if err := m.compile(ctx, wasm); err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("module", c.Name),
		zap.Int("imports", len(desc.Imports)),
		zap.Uint32("memory_pages", plan.Memory.Min),
		zap.Uint32("table_min", plan.Table.Min),
		zap.Int("stubs", len(plan.Stubs)),
	}
	if hasMeta {
		fields = append(fields,
			zap.Uint32("dynamic_base", meta.DynamicBase),
			zap.Uint32("dynamictop_ptr", meta.DynamicTopPtr))
	}
	c.Logger.Debug("loaded module", fields...)
	return m, nil
}

func (m *Module) compile(ctx context.Context, wasm []byte) error {
	if err := m.engine.InitWASI(ctx); err != nil {
		return errors.Load("init WASI", err)
	}

	compiled, err := m.engine.Compile(ctx, wasm)
	if err != nil {
		return errors.Load("compile guest", err)
	}
	m.compiled = compiled

	if _, err := m.engine.InstantiateHost(ctx, compiled, shim.Register, engine.Stubs(m.plan.Stubs)); err != nil {
		return errors.Load("host functions", err)
	}

	synths, err := m.engine.CompileSynth(ctx, m.plan)
	if err != nil {
		return errors.New(errors.PhaseLink, errors.KindInvalidData).
			Cause(err).
			Detail("compile synthesized namespaces").
			Build()
	}
	m.synths = synths
	return nil
}

// hostTypes lists the signature of every shim function.
func hostTypes() map[string]module.FuncType {
	funcs := shim.Funcs()
	out := make(map[string]module.FuncType, len(funcs))
	for _, f := range funcs {
		out[f.Name] = engine.FuncType(f.Params, f.Results)
	}
	return out
}
