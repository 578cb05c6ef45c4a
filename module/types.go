package module

// WebAssembly binary format magic number and version.
const (
	Magic   uint32 = 0x6D736100 // "\0asm" little-endian
	Version uint32 = 0x01
)

// Section IDs.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// Import/export descriptor kinds.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4
)

// Limits flags.
const (
	LimitsHasMax   byte = 0x01
	LimitsShared   byte = 0x02
	LimitsMemory64 byte = 0x04
)

const funcTypeForm byte = 0x60

// Constant expression opcodes the descriptor understands.
const (
	OpEnd       byte = 0x0B
	OpGlobalGet byte = 0x23
	OpI32Const  byte = 0x41
	OpI64Const  byte = 0x42
	OpF32Const  byte = 0x43
	OpF64Const  byte = 0x44
	OpRefNull   byte = 0xD0
	OpRefFunc   byte = 0xD2
)

// ValType is a WebAssembly value type.
type ValType byte

const (
	ValI32     ValType = 0x7F
	ValI64     ValType = 0x7E
	ValF32     ValType = 0x7D
	ValF64     ValType = 0x7C
	ValV128    ValType = 0x7B
	ValFuncRef ValType = 0x70
	ValExtern  ValType = 0x6F
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// Descriptor is the static metadata of a module: everything the shim needs
// to know before instantiation. Function bodies, data and element segments
// are skipped by Parse; Code is only populated by callers building modules
// for Encode.
type Descriptor struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices of defined functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Code     []FuncBody
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two signatures are identical.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// Import is an imported function, table, memory, global or tag.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes an imported item. Kind selects which field is set.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32 // functions and tags
	Kind    byte
}

// Limits are the size bounds of a table or memory.
type Limits struct {
	Max      *uint64
	Min      uint64
	Shared   bool
	Memory64 bool
}

// TableType describes a table.
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType describes a linear memory; limits are in 64KiB pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global is a defined global with its raw initializer expression,
// including the terminating end opcode.
type Global struct {
	Init []byte
	Type GlobalType
}

// Export is an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody is a function body for encoding. Body holds the instructions
// including the final end opcode.
type FuncBody struct {
	Locals []LocalEntry
	Body   []byte
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// ImportsOfKind returns the imports of the given kind in declaration order.
func (d *Descriptor) ImportsOfKind(kind byte) []Import {
	var out []Import
	for _, imp := range d.Imports {
		if imp.Desc.Kind == kind {
			out = append(out, imp)
		}
	}
	return out
}

// FuncTypeOf returns the signature of a function import.
func (d *Descriptor) FuncTypeOf(imp Import) (FuncType, bool) {
	if imp.Desc.Kind != KindFunc || int(imp.Desc.TypeIdx) >= len(d.Types) {
		return FuncType{}, false
	}
	return d.Types[imp.Desc.TypeIdx], true
}

// FuncTypeOfIndex returns the signature of the function at idx in the
// function index space, where imported functions come first.
func (d *Descriptor) FuncTypeOfIndex(idx uint32) (FuncType, bool) {
	imports := d.ImportsOfKind(KindFunc)
	if int(idx) < len(imports) {
		return d.FuncTypeOf(imports[idx])
	}
	i := int(idx) - len(imports)
	if i >= len(d.Funcs) || int(d.Funcs[i]) >= len(d.Types) {
		return FuncType{}, false
	}
	return d.Types[d.Funcs[i]], true
}

// ExportNamed returns the export with the given name.
func (d *Descriptor) ExportNamed(name string) (Export, bool) {
	for _, e := range d.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}
