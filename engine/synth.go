package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/linker"
)

// CompiledSynth is a compiled synthetic namespace module.
type CompiledSynth struct {
	Compiled  wazero.CompiledModule
	Namespace string
}

// CompileSynth compiles every module of plan. The host module must already
// be instantiated when the results are instantiated, not when they are
// compiled.
func (e *WazeroEngine) CompileSynth(ctx context.Context, plan *linker.Plan) ([]CompiledSynth, error) {
	out := make([]CompiledSynth, 0, len(plan.Modules))
	for _, s := range plan.Modules {
		compiled, err := e.Compile(ctx, s.Build())
		if err != nil {
			for _, c := range out {
				_ = c.Compiled.Close(ctx)
			}
			return nil, fmt.Errorf("namespace %s: %w", s.Namespace(), err)
		}
		out = append(out, CompiledSynth{Namespace: s.Namespace(), Compiled: compiled})
	}
	return out, nil
}

// InstantiateSynth instantiates each module under its namespace. On failure
// the modules already instantiated are closed again.
func (e *WazeroEngine) InstantiateSynth(ctx context.Context, synths []CompiledSynth) ([]api.Module, error) {
	mods := make([]api.Module, 0, len(synths))
	for _, s := range synths {
		cfg := wazero.NewModuleConfig().WithName(s.Namespace).WithStartFunctions()
		mod, err := e.runtime.InstantiateModule(ctx, s.Compiled, cfg)
		if err != nil {
			CloseAll(ctx, mods)
			return nil, fmt.Errorf("instantiate namespace %s: %w", s.Namespace, err)
		}
		Logger().Debug("instantiated namespace", zap.String("namespace", s.Namespace))
		mods = append(mods, mod)
	}
	return mods, nil
}

// CloseAll closes mods in reverse order.
func CloseAll(ctx context.Context, mods []api.Module) {
	for i := len(mods) - 1; i >= 0; i-- {
		if err := mods[i].Close(ctx); err != nil {
			Logger().Debug("close module", zap.String("module", mods[i].Name()), zap.Error(err))
		}
	}
}
