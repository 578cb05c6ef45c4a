package runtime

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/engine"
	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/guest"
)

// Initializers run after instantiation, first match only. A reactor's
// _initialize already calls the constructors.
var initializers = []string{"_initialize", "__wasm_call_ctors"}

// Instance is a running guest. It is not safe for concurrent use.
type Instance struct {
	module     *Module
	guest      api.Module
	memory     api.Memory
	gctx       *guest.Context
	namespaces []api.Module
	closed     bool
}

// Context returns the guest context host functions see during calls.
func (i *Instance) Context() *guest.Context {
	return i.gctx
}

// Memory returns the guest's linear memory.
func (i *Instance) Memory() api.Memory {
	return i.memory
}

// Guest returns the underlying wazero module.
func (i *Instance) Guest() api.Module {
	return i.guest
}

func (i *Instance) initialize(ctx context.Context) error {
	m := i.module
	if ptr, ok := m.plan.Globals["DYNAMICTOP_PTR"]; ok && m.hasMeta {
		if !i.memory.WriteUint32Le(uint32(ptr), m.meta.DynamicBase) {
			return errors.OutOfBounds(errors.PhaseRuntime, uint32(ptr), 4, i.memory.Size())
		}
	}

	for _, name := range initializers {
		fn := i.guest.ExportedFunction(name)
		if fn == nil || len(fn.Definition().ParamTypes()) != 0 {
			continue
		}
		if _, err := fn.Call(guest.WithContext(ctx, i.gctx)); err != nil {
			return errors.Trap(name, err)
		}
		break
	}
	return nil
}

// export looks name up as given and with the legacy underscore prefix.
func (i *Instance) export(name string) (api.Function, string) {
	if fn := i.guest.ExportedFunction(name); fn != nil {
		return fn, name
	}
	if fn := i.guest.ExportedFunction("_" + name); fn != nil {
		return fn, "_" + name
	}
	return nil, ""
}

// Call invokes an exported function with raw wasm values.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.closed {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	fn, resolved := i.export(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	results, err := fn.Call(guest.WithContext(ctx, i.gctx), params...)
	if err != nil {
		return nil, errors.Trap(resolved, err)
	}
	return results, nil
}

// Run runs the guest program: _start when exported, otherwise main with
// argc and argv built from Config.Args. It returns the exit code, from
// either main's result or proc_exit.
func (i *Instance) Run(ctx context.Context) (uint32, error) {
	if i.closed {
		return 0, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	if fn := i.guest.ExportedFunction("_start"); fn != nil {
		_, err := fn.Call(guest.WithContext(ctx, i.gctx))
		return exitCode(nil, "_start", err)
	}

	fn, name := i.export("main")
	if fn == nil {
		return 0, errors.MissingExport(errors.PhaseRuntime, "_start", "main", "_main")
	}

	var params []uint64
	switch n := len(fn.Definition().ParamTypes()); n {
	case 0:
	case 2:
		args := i.module.cfg.Args
		argv, err := i.argv(ctx, args)
		if err != nil {
			return 0, err
		}
		params = []uint64{api.EncodeU32(uint32(len(args))), api.EncodeU32(argv)}
	default:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUnsupported).
			Detail("%s takes %d parameters", name, n).
			Build()
	}

	i.gctx.Log().Debug("running", zap.String("entry", name), zap.Strings("args", i.module.cfg.Args))
	results, err := fn.Call(guest.WithContext(ctx, i.gctx), params...)
	return exitCode(results, name, err)
}

// argv copies args into guest memory as a NULL-terminated array of C
// strings. It uses the guest stack when stackAlloc is exported and the
// heap otherwise.
func (i *Instance) argv(ctx context.Context, args []string) (ptr uint32, err error) {
	defer errors.Catch(&err)
	c := i.gctx
	ctx = guest.WithContext(ctx, c)

	ptrs := make([]uint32, len(args))
	for k, a := range args {
		if c.Stack != nil {
			ptrs[k], _ = c.AllocateCStrOnStack(ctx, a)
		} else {
			ptrs[k] = c.CopyStringIntoWasm(ctx, a)
		}
	}

	count := uint32(len(args)) + 1
	if c.Stack != nil {
		ptr, _ = c.AllocateOnStack(ctx, count, 4)
	} else {
		ptr = c.HeapAlloc(ctx, count*4)
	}
	mem := c.Mem()
	mem.PointerAligned(errors.PhaseRuntime, []string{"argv"}, ptr, 4)
	for k, p := range ptrs {
		mem.WriteU32(ptr+uint32(k)*4, p)
	}
	mem.WriteU32(ptr+uint32(len(args))*4, 0)
	return ptr, nil
}

func exitCode(results []uint64, name string, err error) (uint32, error) {
	if err != nil {
		var exit *sys.ExitError
		if stderrors.As(err, &exit) {
			return exit.ExitCode(), nil
		}
		return 0, errors.Trap(name, err)
	}
	if len(results) == 1 {
		return api.DecodeU32(results[0]), nil
	}
	return 0, nil
}

// Close closes the guest and its namespaces. The module can be
// instantiated again afterwards.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	err := i.closeModules(ctx)
	i.module.release(i)
	return err
}

func (i *Instance) closeModules(ctx context.Context) error {
	i.closed = true
	err := i.guest.Close(ctx)
	engine.CloseAll(ctx, i.namespaces)
	return err
}
