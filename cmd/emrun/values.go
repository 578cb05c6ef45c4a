package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-emscripten/linker"
	"github.com/wippyai/wasm-emscripten/module"
)

type funcInfo struct {
	name string
	typ  module.FuncType
}

// exportedFuncs lists the exported functions of d sorted by name.
func exportedFuncs(d *module.Descriptor) []funcInfo {
	var funcs []funcInfo
	for _, e := range d.Exports {
		if e.Kind != module.KindFunc {
			continue
		}
		ft, ok := d.FuncTypeOfIndex(e.Idx)
		if !ok {
			continue
		}
		funcs = append(funcs, funcInfo{name: e.Name, typ: ft})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })
	return funcs
}

// lookupFunc finds an exported function by name, also trying the
// underscore-prefixed form older toolchains emit.
func lookupFunc(d *module.Descriptor, name string) (funcInfo, bool) {
	for _, n := range []string{name, "_" + name} {
		e, ok := d.ExportNamed(n)
		if !ok || e.Kind != module.KindFunc {
			continue
		}
		if ft, ok := d.FuncTypeOfIndex(e.Idx); ok {
			return funcInfo{name: n, typ: ft}, true
		}
	}
	return funcInfo{}, false
}

// parseValue encodes s as a raw wasm value of type t. Integers accept any
// base strconv understands; i32 also takes unsigned values up to 2^32-1.
func parseValue(s string, t module.ValType) (uint64, error) {
	s = strings.TrimSpace(s)
	switch t {
	case module.ValI32:
		if v, err := strconv.ParseInt(s, 0, 32); err == nil {
			return api.EncodeI32(int32(v)), nil
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid i32 %q", s)
		}
		return api.EncodeU32(uint32(v)), nil
	case module.ValI64:
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			return api.EncodeI64(v), nil
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid i64 %q", s)
		}
		return v, nil
	case module.ValF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid f32 %q", s)
		}
		return api.EncodeF32(float32(v)), nil
	case module.ValF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid f64 %q", s)
		}
		return api.EncodeF64(v), nil
	default:
		return 0, fmt.Errorf("cannot pass %s from the command line", t)
	}
}

// parseParams splits a comma-separated list and encodes each entry against
// the parameter types of ft.
func parseParams(raw string, ft module.FuncType) ([]uint64, error) {
	var fields []string
	if strings.TrimSpace(raw) != "" {
		fields = strings.Split(raw, ",")
	}
	if len(fields) != len(ft.Params) {
		return nil, fmt.Errorf("expected %d parameters %s, got %d", len(ft.Params), linker.Signature(ft), len(fields))
	}
	out := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := parseValue(f, ft.Params[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatValue(v uint64, t module.ValType) string {
	switch t {
	case module.ValI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case module.ValI64:
		return strconv.FormatInt(int64(v), 10)
	case module.ValF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case module.ValF64:
		return strconv.FormatFloat(math.Float64frombits(v), 'g', -1, 64)
	default:
		return fmt.Sprintf("%#x", v)
	}
}

func formatResults(results []uint64, ft module.FuncType) string {
	if len(results) == 0 {
		return "()"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		t := module.ValI64
		if i < len(ft.Results) {
			t = ft.Results[i]
		}
		parts[i] = formatValue(r, t)
	}
	return strings.Join(parts, " ")
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type inspectable interface {
	Descriptor() *module.Descriptor
	Metadata() (module.Metadata, bool)
	MemoryBounds() module.MemoryBounds
	TableBounds() module.TableBounds
	Globals() map[string]int64
	Stubs() []linker.Stub
}

// printInfo writes the linked layout of a loaded guest.
func printInfo(w io.Writer, name string, m inspectable) {
	d := m.Descriptor()
	mem := m.MemoryBounds()
	tbl := m.TableBounds()

	fmt.Fprintf(w, "Module: %s\n", name)
	fmt.Fprintf(w, "Memory: %s.%s pages %d..%s", mem.Module, mem.Name, mem.Min, maxString(mem.Max))
	if mem.Shared {
		fmt.Fprint(w, " shared")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Table:  %s.%s %s %d..%s\n", tbl.Module, tbl.Name, tbl.Elem, tbl.Min, maxString(tbl.Max))
	if meta, ok := m.Metadata(); ok {
		fmt.Fprintf(w, "Dynamic base: %d\nDynamic top pointer: %d\n", meta.DynamicBase, meta.DynamicTopPtr)
	}

	globals := m.Globals()
	if len(globals) > 0 {
		names := make([]string, 0, len(globals))
		for k := range globals {
			names = append(names, k)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\nGlobals:\n")
		for _, k := range names {
			fmt.Fprintf(w, "  %-16s %d\n", k, globals[k])
		}
	}

	fmt.Fprintf(w, "\nImports: %d\n", len(d.Imports))
	for _, imp := range d.ImportsOfKind(module.KindFunc) {
		ft, _ := d.FuncTypeOf(imp)
		fmt.Fprintf(w, "  %s.%s %s\n", imp.Module, imp.Name, linker.Signature(ft))
	}

	if stubs := m.Stubs(); len(stubs) > 0 {
		fmt.Fprintf(w, "\nTrapping stubs:\n")
		for _, s := range stubs {
			fmt.Fprintf(w, "  %s.%s\n", s.Namespace, s.Name)
		}
	}

	fmt.Fprintf(w, "\nExported functions:\n")
	for _, f := range exportedFuncs(d) {
		fmt.Fprintf(w, "  %s %s\n", f.name, linker.Signature(f.typ))
	}
}

func maxString(max *uint32) string {
	if max == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*max), 10)
}
