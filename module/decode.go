package module

import (
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-emscripten/module/internal/binary"
)

// Parsing errors returned by Parse.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Parse decodes the parts of a WebAssembly binary that describe its
// interface: types, imports, functions, tables, memories, globals and
// exports. All other sections are skipped by size.
func Parse(data []byte) (*Descriptor, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	d := &Descriptor{}
	var lastOrder int

	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("section header", err)
		}
		if id != SectionCustom {
			order := sectionOrder(id)
			if order == 0 {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", id)
			}
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", id)
			}
			lastOrder = order
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		sr := binary.NewReader(payload)
		switch id {
		case SectionType:
			err = parseTypeSection(sr, d)
		case SectionImport:
			err = parseImportSection(sr, d)
		case SectionFunction:
			err = parseFunctionSection(sr, d)
		case SectionTable:
			err = parseTableSection(sr, d)
		case SectionMemory:
			err = parseMemorySection(sr, d)
		case SectionGlobal:
			err = parseGlobalSection(sr, d)
		case SectionExport:
			err = parseExportSection(sr, d)
		default:
			continue
		}
		if err != nil {
			return nil, sr.WrapError(sectionName(id), err)
		}
	}

	return d, nil
}

// sectionOrder returns the canonical position of a section, which differs
// from its ID for tag and data count sections. Zero means unknown.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	}
	return 0
}

func sectionName(id byte) string {
	switch id {
	case SectionType:
		return "type section"
	case SectionImport:
		return "import section"
	case SectionFunction:
		return "function section"
	case SectionTable:
		return "table section"
	case SectionMemory:
		return "memory section"
	case SectionGlobal:
		return "global section"
	case SectionExport:
		return "export section"
	}
	return fmt.Sprintf("section %d", id)
}

func parseTypeSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Types = make([]FuncType, count)
	for i := range d.Types {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != funcTypeForm {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		if d.Types[i].Params, err = readValTypes(r); err != nil {
			return err
		}
		if d.Types[i].Results, err = readValTypes(r); err != nil {
			return err
		}
	}
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]ValType, n)
	for i, b := range raw {
		out[i] = ValType(b)
	}
	return out, nil
}

func parseImportSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Imports = make([]Import, count)
	for i := range d.Imports {
		mod, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		imp := Import{Module: mod, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
		case KindTable:
			var table TableType
			table, err = readTableType(r)
			imp.Desc.Table = &table
		case KindMemory:
			var limits Limits
			limits, err = readLimits(r)
			imp.Desc.Memory = &MemoryType{Limits: limits}
		case KindGlobal:
			var global GlobalType
			global, err = readGlobalType(r)
			imp.Desc.Global = &global
		case KindTag:
			if _, err = r.ReadByte(); err == nil {
				imp.Desc.TypeIdx, err = r.ReadU32()
			}
		default:
			return fmt.Errorf("unknown import kind: %d", kind)
		}
		if err != nil {
			return err
		}
		d.Imports[i] = imp
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Funcs = make([]uint32, count)
	for i := range d.Funcs {
		if d.Funcs[i], err = r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func parseTableSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Tables = make([]TableType, count)
	for i := range d.Tables {
		if d.Tables[i], err = readTableType(r); err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Memories = make([]MemoryType, count)
	for i := range d.Memories {
		if d.Memories[i].Limits, err = readLimits(r); err != nil {
			return err
		}
	}
	return nil
}

func parseGlobalSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Globals = make([]Global, count)
	for i := range d.Globals {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return err
		}
		d.Globals[i] = Global{Type: gt, Init: init}
	}
	return nil
}

func parseExportSection(r *binary.Reader, d *Descriptor) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.Exports = make([]Export, count)
	for i := range d.Exports {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		d.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	l := Limits{
		Shared:   flags&LimitsShared != 0,
		Memory64: flags&LimitsMemory64 != 0,
	}

	read := func() (uint64, error) {
		if l.Memory64 {
			return r.ReadU64()
		}
		v, err := r.ReadU32()
		return uint64(v), err
	}

	if l.Min, err = read(); err != nil {
		return Limits{}, err
	}
	if flags&LimitsHasMax != 0 {
		maxVal, err := read()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &maxVal
	}
	if l.Max != nil && l.Min > *l.Max {
		return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}
	return l, nil
}

func readTableType(r *binary.Reader) (TableType, error) {
	elem, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	if ValType(elem) != ValFuncRef && ValType(elem) != ValExtern {
		return TableType{}, fmt.Errorf("unsupported table element type 0x%02x", elem)
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: ValType(elem), Limits: limits}, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{ValType: ValType(vt), Mutable: mut != 0}, nil
}

// readConstExpr copies a constant expression up to and including its end
// opcode. Only the MVP constant opcodes are accepted.
func readConstExpr(r *binary.Reader) ([]byte, error) {
	start := r.Position()
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEnd:
			return append([]byte(nil), r.Since(start)...), nil
		case OpI32Const, OpI64Const:
			_, err = r.ReadS64()
		case OpF32Const:
			err = r.Skip(4)
		case OpF64Const:
			err = r.Skip(8)
		case OpGlobalGet, OpRefFunc:
			_, err = r.ReadU32()
		case OpRefNull:
			_, err = r.ReadByte()
		default:
			return nil, fmt.Errorf("unsupported opcode 0x%02x in constant expression", op)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}
