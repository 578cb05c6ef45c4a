package linker

import (
	"math"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/module"
)

// StaticBase is where the toolchain places static data.
const StaticBase = 1024

// DefaultGlobals returns the integer globals the JavaScript glue of this
// ABI generation provides. With metadata, the stack sits directly after the
// dynamic-top cell and ends at the dynamic base.
func DefaultGlobals(meta module.Metadata, hasMeta bool) map[string]int64 {
	g := map[string]int64{
		"memoryBase":      StaticBase,
		"__memory_base":   StaticBase,
		"tableBase":       0,
		"__table_base":    0,
		"ABORT":           0,
		"tempDoublePtr":   0,
		"__stack_pointer": 0,
	}
	if hasMeta {
		stackTop := module.AlignMemory(meta.DynamicTopPtr + 4)
		g["DYNAMICTOP_PTR"] = int64(meta.DynamicTopPtr)
		g["STACKTOP"] = int64(stackTop)
		g["STACK_MAX"] = int64(meta.DynamicBase)
		g["__stack_pointer"] = int64(meta.DynamicBase)
	}
	return g
}

// globalInit returns the initializer for an imported global. Integer
// globals take their value from values, floating point ones recognize the
// NaN and Infinity constants; everything else starts at zero.
func globalInit(namespace, name string, t module.GlobalType, values map[string]int64) ([]byte, error) {
	switch t.ValType {
	case module.ValI32:
		return module.I32Const(int32(values[name])), nil
	case module.ValI64:
		return module.I64Const(values[name]), nil
	case module.ValF64:
		switch name {
		case "NaN":
			return module.F64Const(math.NaN()), nil
		case "Infinity":
			return module.F64Const(math.Inf(1)), nil
		}
		return module.F64Const(0), nil
	case module.ValF32, module.ValFuncRef, module.ValExtern:
		return module.ZeroConst(t.ValType), nil
	}
	return nil, errors.New(errors.PhaseLink, errors.KindUnsupported).
		Path(namespace, name).
		Detail("global of type %s", t.ValType).
		Build()
}
