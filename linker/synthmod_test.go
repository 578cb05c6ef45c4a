package linker

import (
	"testing"

	"github.com/wippyai/wasm-emscripten/module"
)

func TestSynthModuleReexport(t *testing.T) {
	s := NewSynthModule("env", HostModule)
	ft := module.FuncType{Params: []module.ValType{module.ValI32}}
	if err := s.Reexport("putchar", "putchar", ft); err != nil {
		t.Fatal(err)
	}
	if err := s.Reexport("_putchar", "putchar", ft); err != nil {
		t.Fatal(err)
	}

	if len(s.desc.Types) != 1 {
		t.Errorf("got %d types, want 1 shared", len(s.desc.Types))
	}
	if s.desc.Exports[1].Idx != 1 {
		t.Errorf("second export index = %d, want 1", s.desc.Exports[1].Idx)
	}
	if s.funcCount != 2 {
		t.Errorf("funcCount = %d", s.funcCount)
	}
	if err := s.Reexport("putchar", "putchar", ft); err == nil {
		t.Error("expected duplicate export error")
	}
}

func TestSynthModuleSingleMemory(t *testing.T) {
	s := NewSynthModule("env", HostModule)
	if err := s.DefineMemory("memory", module.Limits{Min: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.DefineMemory("memory2", module.Limits{Min: 1}); err == nil {
		t.Error("expected error for second memory")
	}
}

func TestSynthModuleBuild(t *testing.T) {
	s := NewSynthModule("env", HostModule)
	maxPages := uint64(4)
	if err := s.DefineMemory("memory", module.Limits{Min: 1, Max: &maxPages, Shared: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.DefineTable("table", module.TableType{ElemType: module.ValFuncRef, Limits: module.Limits{Min: 8}}); err != nil {
		t.Fatal(err)
	}
	if err := s.DefineGlobal("ABORT", module.GlobalType{ValType: module.ValI32}, module.I32Const(0)); err != nil {
		t.Fatal(err)
	}

	d, err := module.Parse(s.Build())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Memories) != 1 || !d.Memories[0].Limits.Shared || *d.Memories[0].Limits.Max != 4 {
		t.Errorf("memories = %+v", d.Memories)
	}
	if len(d.Tables) != 1 || d.Tables[0].Limits.Min != 8 {
		t.Errorf("tables = %+v", d.Tables)
	}
	if len(d.Exports) != 3 {
		t.Errorf("exports = %+v", d.Exports)
	}
	if !s.Has("ABORT") || s.Has("abort") {
		t.Error("Has does not track exports")
	}
}
