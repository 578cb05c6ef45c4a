package module

import (
	stdbinary "encoding/binary"
	"math"

	"github.com/wippyai/wasm-emscripten/module/internal/binary"
)

// Encode writes the descriptor back to the WebAssembly binary format.
// Sections are emitted only when non-empty. A descriptor produced by Parse
// has no Code, so encoding one only round-trips modules without defined
// functions.
func (d *Descriptor) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(d.Types) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Types)))
		for _, ft := range d.Types {
			sec.Byte(funcTypeForm)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		w.Section(SectionType, sec.Bytes())
	}

	if len(d.Imports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Imports)))
		for _, imp := range d.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(imp.Desc.Kind)
			switch imp.Desc.Kind {
			case KindFunc:
				sec.WriteU32(imp.Desc.TypeIdx)
			case KindTable:
				writeTableType(sec, *imp.Desc.Table)
			case KindMemory:
				writeLimits(sec, imp.Desc.Memory.Limits)
			case KindGlobal:
				writeGlobalType(sec, *imp.Desc.Global)
			case KindTag:
				sec.Byte(0)
				sec.WriteU32(imp.Desc.TypeIdx)
			}
		}
		w.Section(SectionImport, sec.Bytes())
	}

	if len(d.Funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Funcs)))
		for _, typeIdx := range d.Funcs {
			sec.WriteU32(typeIdx)
		}
		w.Section(SectionFunction, sec.Bytes())
	}

	if len(d.Tables) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Tables)))
		for _, t := range d.Tables {
			writeTableType(sec, t)
		}
		w.Section(SectionTable, sec.Bytes())
	}

	if len(d.Memories) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Memories)))
		for _, m := range d.Memories {
			writeLimits(sec, m.Limits)
		}
		w.Section(SectionMemory, sec.Bytes())
	}

	if len(d.Globals) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Globals)))
		for _, g := range d.Globals {
			writeGlobalType(sec, g.Type)
			sec.WriteBytes(g.Init)
		}
		w.Section(SectionGlobal, sec.Bytes())
	}

	if len(d.Exports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Exports)))
		for _, e := range d.Exports {
			sec.WriteName(e.Name)
			sec.Byte(e.Kind)
			sec.WriteU32(e.Idx)
		}
		w.Section(SectionExport, sec.Bytes())
	}

	if len(d.Code) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(d.Code)))
		for _, fb := range d.Code {
			body := binary.NewWriter()
			body.WriteU32(uint32(len(fb.Locals)))
			for _, l := range fb.Locals {
				body.WriteU32(l.Count)
				body.Byte(byte(l.Type))
			}
			body.WriteBytes(fb.Body)
			sec.WriteU32(uint32(body.Len()))
			sec.WriteBytes(body.Bytes())
		}
		w.Section(SectionCode, sec.Bytes())
	}

	return w.Bytes()
}

// I32Const returns the constant expression `i32.const v; end`.
func I32Const(v int32) []byte {
	w := binary.NewWriter()
	w.Byte(OpI32Const)
	w.WriteS64(int64(v))
	w.Byte(OpEnd)
	return w.Bytes()
}

// I64Const returns the constant expression `i64.const v; end`.
func I64Const(v int64) []byte {
	w := binary.NewWriter()
	w.Byte(OpI64Const)
	w.WriteS64(v)
	w.Byte(OpEnd)
	return w.Bytes()
}

// F64Const returns the constant expression `f64.const v; end`.
func F64Const(v float64) []byte {
	w := binary.NewWriter()
	w.Byte(OpF64Const)
	var raw [8]byte
	stdbinary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
	w.WriteBytes(raw[:])
	w.Byte(OpEnd)
	return w.Bytes()
}

// ZeroConst returns a zero-valued constant expression for t. Reference
// types get ref.null.
func ZeroConst(t ValType) []byte {
	switch t {
	case ValI64:
		return I64Const(0)
	case ValF32:
		return []byte{OpF32Const, 0, 0, 0, 0, OpEnd}
	case ValF64:
		return F64Const(0)
	case ValFuncRef, ValExtern:
		return []byte{OpRefNull, byte(t), OpEnd}
	}
	return I32Const(0)
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	var flags byte
	if l.Max != nil {
		flags |= LimitsHasMax
	}
	if l.Shared {
		flags |= LimitsShared
	}
	if l.Memory64 {
		flags |= LimitsMemory64
	}
	w.Byte(flags)
	w.WriteU64(l.Min)
	if l.Max != nil {
		w.WriteU64(*l.Max)
	}
}

func writeTableType(w *binary.Writer, t TableType) {
	w.Byte(byte(t.ElemType))
	writeLimits(w, t.Limits)
}

func writeGlobalType(w *binary.Writer, g GlobalType) {
	w.Byte(byte(g.ValType))
	if g.Mutable {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}
