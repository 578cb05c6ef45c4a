// Package engine wraps the wazero runtime a guest runs in.
//
// A WazeroEngine owns one wazero.Runtime holding, in instantiation order:
//
//   - the WASI preview1 host module (InitWASI)
//   - the host module with the shim functions, trapping stubs and the
//     invoke_* trampolines for the guest (InstantiateHost)
//   - the synthetic namespace modules planned by the linker package
//     (CompileSynth, InstantiateSynth)
//   - the guest itself
//
// Module names are unique within a runtime, so a runtime carries at most
// one live guest instance.
package engine
