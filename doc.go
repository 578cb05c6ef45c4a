// Package wasmemscripten runs Emscripten-produced WebAssembly modules on wazero
// and translates the handful of POSIX calls they import into host operations.
//
// The hard part of such a shim is not the system calls themselves but the
// marshaling around them: guest pointers are 32-bit offsets into a linear
// memory, structs follow a fixed 32-bit C ABI, and every path the guest names
// is remapped to a host directory before it reaches the OS.
//
// # Architecture Overview
//
//	wasmemscripten/     Root package with the Memory and Allocator interfaces
//	├── guest/          Execution context, memory accessor, marshaling primitives
//	├── layout/         Guest ABI struct layouts (passwd, stat)
//	├── module/         Module descriptor decoding, encoding and introspection
//	├── pathmap/        Path mapping table and guest path resolution
//	├── host/           Host OS primitives (stat, chdir, chroot, user lookup)
//	├── shim/           The "env" host functions imported by Emscripten modules
//	├── linker/         Import resolution and namespace module synthesis
//	├── engine/         wazero engine, host module and stub registration
//	├── runtime/        Load, Instantiate, Run and Call
//	├── errors/         Structured error types
//	└── cmd/emrun/      Command line runner and export explorer
//
// # Quick Start
//
//	mappings := pathmap.NewTable()
//	mappings.Set(".", "/srv/sandbox")
//
//	mod, err := runtime.Load(ctx, wasmBytes, &runtime.Config{Mappings: mappings})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exitCode, err := inst.Run(ctx)
//
// # Thread Safety
//
// A guest.Context belongs to exactly one instance and must be used by one call
// at a time. Nothing in this module locks around guest memory or the guest's
// allocator exports.
package wasmemscripten
