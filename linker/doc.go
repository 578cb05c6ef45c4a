// Package linker resolves an Emscripten guest's imports against the host.
//
// wazero host modules can only export functions, while Emscripten guests
// import their memory, table and a handful of globals from env alongside
// the runtime functions. Link therefore plans one synthetic module per
// import namespace:
//
//   - functions are imported from HostModule and re-exported under the
//     name the guest expects
//   - the memory and table are defined with the guest's own limits
//   - globals are defined with values from DefaultGlobals or Options.Globals
//
// Function imports are checked against the host signatures before any
// module is compiled, and unresolved ones are reported together as an
// errors.MissingImportsError.
//
// # Example
//
//	plan, err := linker.Link(desc, linker.Options{Host: hostTypes})
//	if err != nil {
//	    return err
//	}
//	for _, s := range plan.Modules {
//	    bin := s.Build()
//	    // compile and instantiate bin under s.Namespace()
//	}
package linker
