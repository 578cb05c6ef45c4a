// Package module decodes the interface of a WebAssembly binary and answers
// the questions the Emscripten shim asks before instantiation.
//
// Only the sections that describe a module's boundary are decoded: types,
// imports, functions, tables, memories, globals and exports. Code and data
// are skipped by size, so parsing a large module stays cheap.
//
// # Introspection
//
//	d, err := module.Parse(data)
//	if err != nil {
//	    return err
//	}
//	if !module.IsEmscripten(d) {
//	    return fmt.Errorf("not an emscripten module")
//	}
//	mem, err := module.ImportedMemoryBounds(d)
//	table, err := module.ImportedTableBounds(d)
//	meta, ok := module.EmscriptenMetadata(d)
//
// EmscriptenMetadata relies on the order in which the toolchain emits its
// globals. It is a best-effort source: callers must treat ok == false as
// "unknown" and carry on.
//
// # Encoding
//
// Descriptor.Encode writes a descriptor back to binary form, including
// function bodies in Code. The runtime uses it to synthesize the env module
// that provides memory, table and host function re-exports to the guest.
package module
