// Package runtime loads and runs Emscripten-compiled guests on wazero.
//
// # Quick Start
//
//	ctx := context.Background()
//	mod, err := runtime.Load(ctx, wasmBytes, &runtime.Config{
//	    Mappings: mappings,
//	    Args:     []string{"prog", "input.txt"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	code, err := inst.Run(ctx)
//
// # Loading
//
// Load rejects binaries that do not import env.emscripten_memcpy_big, then
// reads the imported memory and table limits and the dynamic-base metadata.
// Imports are linked through the linker package: env functions resolve to
// the shim package, invoke_* trampolines to wazero's emscripten exporter,
// and memory, table and globals to a synthesized module. Unresolved
// functions fail Load with an errors.MissingImportsError unless
// Config.TrapMissing is set.
//
// # Instances
//
// Instantiate creates the guest's memory, binds malloc and stackAlloc, seeds
// the dynamic-top cell from the metadata and runs _initialize or
// __wasm_call_ctors. Every call made through an Instance carries its
// guest.Context, which the shims use to reach memory and the host.
//
// Host functions abort a call by panicking with an *errors.Error. The
// failed call returns an errors.KindTrap error wrapping it.
package runtime
