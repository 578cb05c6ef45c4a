package module

import (
	"bytes"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/module/internal/binary"
)

// EnvNamespace is the import module name Emscripten uses for its runtime.
const EnvNamespace = "env"

// StackAlign is the alignment Emscripten's allocator uses for heap and
// stack boundaries.
const StackAlign = 16

// metadataBias is subtracted from the raw metadata globals before alignment.
const metadataBias = 32

// IsEmscripten reports whether the module imports emscripten_memcpy_big
// (either spelling) from the env namespace, which every Emscripten build of
// this ABI generation does.
func IsEmscripten(d *Descriptor) bool {
	for _, imp := range d.Imports {
		if imp.Desc.Kind != KindFunc || imp.Module != EnvNamespace {
			continue
		}
		if imp.Name == "_emscripten_memcpy_big" || imp.Name == "emscripten_memcpy_big" {
			return true
		}
	}
	return false
}

// TableBounds are the limits of the first imported table, in elements.
type TableBounds struct {
	Max    *uint32
	Module string
	Name   string
	Min    uint32
	Elem   ValType
}

// MemoryBounds are the limits of the first imported memory, in pages.
type MemoryBounds struct {
	Max    *uint32
	Module string
	Name   string
	Min    uint32
	Shared bool
}

// ImportedTableBounds returns the bounds of the first imported table. A
// module without one does not follow the ABI.
func ImportedTableBounds(d *Descriptor) (TableBounds, error) {
	for _, imp := range d.Imports {
		if imp.Desc.Kind != KindTable {
			continue
		}
		t := imp.Desc.Table
		b := TableBounds{Module: imp.Module, Name: imp.Name, Min: uint32(t.Limits.Min), Elem: t.ElemType}
		if t.Limits.Max != nil {
			maxVal := uint32(*t.Limits.Max)
			b.Max = &maxVal
		}
		return b, nil
	}
	return TableBounds{}, errors.MissingImport(errors.PhaseIntrospect, "table")
}

// ImportedMemoryBounds returns the bounds of the first imported memory. A
// module without one does not follow the ABI.
func ImportedMemoryBounds(d *Descriptor) (MemoryBounds, error) {
	for _, imp := range d.Imports {
		if imp.Desc.Kind != KindMemory {
			continue
		}
		l := imp.Desc.Memory.Limits
		if l.Memory64 {
			return MemoryBounds{}, errors.Unsupported(errors.PhaseIntrospect, "64-bit imported memory")
		}
		b := MemoryBounds{Module: imp.Module, Name: imp.Name, Min: uint32(l.Min), Shared: l.Shared}
		if l.Max != nil {
			maxVal := uint32(*l.Max)
			b.Max = &maxVal
		}
		return b, nil
	}
	return MemoryBounds{}, errors.MissingImport(errors.PhaseIntrospect, "memory")
}

// Metadata holds the values written by `-s EMIT_EMSCRIPTEN_METADATA=1`.
type Metadata struct {
	DynamicBase   uint32
	DynamicTopPtr uint32
}

// IndexedGlobal is a defined global together with its index in the module's
// global index space.
type IndexedGlobal struct {
	Global Global
	Index  uint32
}

// IndexedGlobals returns the defined globals numbered in the global index
// space, where imported globals come first.
func (d *Descriptor) IndexedGlobals() []IndexedGlobal {
	base := uint32(len(d.ImportsOfKind(KindGlobal)))
	out := make([]IndexedGlobal, len(d.Globals))
	for i, g := range d.Globals {
		out[i] = IndexedGlobal{Index: base + uint32(i), Global: g}
	}
	return out
}

// EmscriptenMetadata recovers the dynamic base and dynamic-top pointer from
// the module's globals. See SelectMetadata.
func EmscriptenMetadata(d *Descriptor) (Metadata, bool) {
	return SelectMetadata(d.IndexedGlobals())
}

// SelectMetadata applies the toolchain's emission convention: the global
// with the largest index initializes the dynamic base and the one with the
// second largest index the dynamic-top pointer. Both must be i32.const
// initializers. The convention is positional and carries no marker, so a
// false result only means the metadata is unavailable.
func SelectMetadata(globals []IndexedGlobal) (Metadata, bool) {
	if len(globals) < 2 {
		return Metadata{}, false
	}
	top, second := -1, -1
	for i, g := range globals {
		switch {
		case top < 0 || g.Index > globals[top].Index:
			second, top = top, i
		case g.Index == globals[top].Index:
			// duplicate index, not a second distinct global
		case second < 0 || g.Index > globals[second].Index:
			second = i
		}
	}
	if second < 0 {
		return Metadata{}, false
	}

	base, ok := globals[top].Global.ConstI32()
	if !ok {
		return Metadata{}, false
	}
	topPtr, ok := globals[second].Global.ConstI32()
	if !ok {
		return Metadata{}, false
	}
	return Metadata{
		DynamicBase:   AlignMemory(uint32(base) - metadataBias),
		DynamicTopPtr: AlignMemory(uint32(topPtr) - metadataBias),
	}, true
}

// AlignMemory rounds ptr up to StackAlign.
func AlignMemory(ptr uint32) uint32 {
	return (ptr + StackAlign - 1) &^ (StackAlign - 1)
}

// ConstI32 returns the value of an initializer of the exact form
// `i32.const v; end`.
func (g Global) ConstI32() (int32, bool) {
	if len(g.Init) < 2 || g.Init[0] != OpI32Const {
		return 0, false
	}
	r := binary.NewReader(g.Init[1:])
	v, err := r.ReadS32()
	if err != nil {
		return 0, false
	}
	rest := g.Init[1+r.Position():]
	if !bytes.Equal(rest, []byte{OpEnd}) {
		return 0, false
	}
	return v, true
}
