package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"syscall"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap/zaptest"

	emerrors "github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/module"
	"github.com/wippyai/wasm-emscripten/pathmap"
	"github.com/wippyai/wasm-emscripten/runtime"
)

// Globals of the test guest, in index order after the imported
// DYNAMICTOP_PTR: a constructor flag, the heap bump pointer and the stack
// pointer. The last two double as the metadata pair.
const (
	heapStart  = 4096
	stackStart = 65536

	wantDynamicBase   = 65504
	wantDynamicTopPtr = 4064
)

const i32 = module.ValI32

// Type indices of the test guest.
const (
	tVoidI32 = iota // (i32) -> ()
	tI32I32         // (i32 i32) -> i32
	tI32x3          // (i32 i32 i32) -> i32
	tI32            // (i32) -> i32
	tVoid           // () -> ()
)

func ptrTo[T any](v T) *T { return &v }

// guestWasm assembles a minimal guest in the shape of an Emscripten
// build: imported memory, table and runtime functions, a bump malloc, a
// downward stackAlloc, a main that prints the first byte of argv[1] and
// returns argc, and thin wrappers calling printf and getcwd.
func guestWasm(withAbort bool) []byte {
	imports := []module.Import{
		{Module: "env", Name: "memory", Desc: module.ImportDesc{Kind: module.KindMemory, Memory: &module.MemoryType{Limits: module.Limits{Min: 1, Max: ptrTo(uint64(4))}}}},
		{Module: "env", Name: "table", Desc: module.ImportDesc{Kind: module.KindTable, Table: &module.TableType{ElemType: module.ValFuncRef, Limits: module.Limits{Min: 1}}}},
		{Module: "env", Name: "emscripten_memcpy_big", Desc: module.ImportDesc{Kind: module.KindFunc, TypeIdx: uint32(tI32x3)}},
		{Module: "env", Name: "putchar", Desc: module.ImportDesc{Kind: module.KindFunc, TypeIdx: uint32(tVoidI32)}},
		{Module: "env", Name: "printf", Desc: module.ImportDesc{Kind: module.KindFunc, TypeIdx: uint32(tI32I32)}},
		{Module: "env", Name: "__syscall_getcwd", Desc: module.ImportDesc{Kind: module.KindFunc, TypeIdx: uint32(tI32I32)}},
		{Module: "env", Name: "DYNAMICTOP_PTR", Desc: module.ImportDesc{Kind: module.KindGlobal, Global: &module.GlobalType{ValType: i32}}},
	}
	if withAbort {
		imports = append(imports, module.Import{Module: "env", Name: "abort", Desc: module.ImportDesc{Kind: module.KindFunc, TypeIdx: uint32(tVoidI32)}})
	}
	base := uint32(4)
	if withAbort {
		base = 5
	}

	funcs := []uint32{uint32(tI32), uint32(tI32), uint32(tI32I32), uint32(tI32I32), uint32(tI32I32), uint32(tVoid)}
	code := []module.FuncBody{
		// malloc: old := heap; heap = (heap + n + 7) &^ 7; return old
		{Body: []byte{0x23, 0x02, 0x23, 0x02, 0x20, 0x00, 0x6A, 0x41, 0x07, 0x6A, 0x41, 0x78, 0x71, 0x24, 0x02, 0x0B}},
		// stackAlloc: sp = (sp - n) &^ 15; return sp
		{Body: []byte{0x23, 0x03, 0x20, 0x00, 0x6B, 0x41, 0x70, 0x71, 0x24, 0x03, 0x23, 0x03, 0x0B}},
		// main: putchar(*argv[1]); return argc
		{Body: []byte{0x20, 0x01, 0x28, 0x02, 0x04, 0x2D, 0x00, 0x00, 0x10, 0x01, 0x20, 0x00, 0x0B}},
		// call_printf
		{Body: []byte{0x20, 0x00, 0x20, 0x01, 0x10, 0x02, 0x0B}},
		// call_getcwd
		{Body: []byte{0x20, 0x00, 0x20, 0x01, 0x10, 0x03, 0x0B}},
		// __wasm_call_ctors: ctors_ran = 1
		{Body: []byte{0x41, 0x01, 0x24, 0x01, 0x0B}},
	}
	exports := []module.Export{
		{Name: "malloc", Kind: module.KindFunc, Idx: base},
		{Name: "stackAlloc", Kind: module.KindFunc, Idx: base + 1},
		{Name: "main", Kind: module.KindFunc, Idx: base + 2},
		{Name: "call_printf", Kind: module.KindFunc, Idx: base + 3},
		{Name: "call_getcwd", Kind: module.KindFunc, Idx: base + 4},
		{Name: "__wasm_call_ctors", Kind: module.KindFunc, Idx: base + 5},
		{Name: "ctors_ran", Kind: module.KindGlobal, Idx: 1},
	}
	if withAbort {
		funcs = append(funcs, uint32(tVoid))
		code = append(code, module.FuncBody{Body: []byte{0x41, 0x07, 0x10, 0x04, 0x0B}})
		exports = append(exports, module.Export{Name: "call_abort", Kind: module.KindFunc, Idx: base + 6})
	}

	d := &module.Descriptor{
		Types: []module.FuncType{
			{Params: []module.ValType{i32}},
			{Params: []module.ValType{i32, i32}, Results: []module.ValType{i32}},
			{Params: []module.ValType{i32, i32, i32}, Results: []module.ValType{i32}},
			{Params: []module.ValType{i32}, Results: []module.ValType{i32}},
			{},
		},
		Imports: imports,
		Funcs:   funcs,
		Globals: []module.Global{
			{Type: module.GlobalType{ValType: i32, Mutable: true}, Init: module.I32Const(0)},
			{Type: module.GlobalType{ValType: i32, Mutable: true}, Init: module.I32Const(heapStart)},
			{Type: module.GlobalType{ValType: i32, Mutable: true}, Init: module.I32Const(stackStart)},
		},
		Exports: exports,
		Code:    code,
	}
	return d.Encode()
}

type fakeOS struct {
	cwd string
}

func (fakeOS) Chroot(string) error { return syscall.ENOSYS }
func (fakeOS) Chdir(string) error { return syscall.ENOSYS }
func (f fakeOS) Getwd() (string, error) { return f.cwd, nil }
func (fakeOS) Stat(string) (*host.Stat, error) { return nil, syscall.ENOENT }
func (fakeOS) Lstat(string) (*host.Stat, error) { return nil, syscall.ENOENT }
func (fakeOS) LookupUID(uint32) (*host.Passwd, error) { return nil, host.ErrNoSuchUser }

func load(t *testing.T, wasm []byte, cfg *runtime.Config) *runtime.Module {
	t.Helper()
	ctx := context.Background()
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	m, err := runtime.Load(ctx, wasm, cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(ctx) })
	return m
}

func instantiate(t *testing.T, m *runtime.Module) *runtime.Instance {
	t.Helper()
	inst, err := m.Instantiate(context.Background())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return inst
}

func TestLoadIntrospection(t *testing.T) {
	m := load(t, guestWasm(false), &runtime.Config{Stdout: io.Discard, Host: fakeOS{}})

	meta, ok := m.Metadata()
	if !ok {
		t.Fatal("metadata not recovered")
	}
	if meta.DynamicBase != wantDynamicBase || meta.DynamicTopPtr != wantDynamicTopPtr {
		t.Errorf("metadata = %+v", meta)
	}
	if b := m.MemoryBounds(); b.Min != 1 || b.Max == nil || *b.Max != 4 {
		t.Errorf("memory bounds = %+v", b)
	}
	if b := m.TableBounds(); b.Min != 1 || b.Max != nil {
		t.Errorf("table bounds = %+v", b)
	}
	if got := m.Globals()["DYNAMICTOP_PTR"]; got != wantDynamicTopPtr {
		t.Errorf("DYNAMICTOP_PTR = %d", got)
	}
}

func TestInstantiateInitializes(t *testing.T) {
	m := load(t, guestWasm(false), &runtime.Config{Stdout: io.Discard, Host: fakeOS{}})
	inst := instantiate(t, m)
	defer inst.Close(context.Background())

	if g := inst.Guest().ExportedGlobal("ctors_ran"); g == nil || api.DecodeI32(g.Get()) != 1 {
		t.Error("static constructors did not run")
	}
	top, ok := inst.Memory().ReadUint32Le(wantDynamicTopPtr)
	if !ok || top != wantDynamicBase {
		t.Errorf("dynamic top cell = %d, %v; want %d", top, ok, wantDynamicBase)
	}

	c := inst.Context()
	if c.Heap == nil || c.Stack == nil {
		t.Fatalf("allocators not bound: heap=%v stack=%v", c.Heap, c.Stack)
	}
	ptr := c.CopyStringIntoWasm(context.Background(), "abc")
	if ptr != heapStart {
		t.Errorf("first allocation at %d, want %d", ptr, heapStart)
	}
	if got := c.ReadString(ptr); got != "abc" {
		t.Errorf("copied string = %q", got)
	}
}

func TestRunMain(t *testing.T) {
	var stdout bytes.Buffer
	m := load(t, guestWasm(false), &runtime.Config{
		Stdout: &stdout,
		Host:   fakeOS{},
		Args:   []string{"prog", "xyz"},
	})
	inst := instantiate(t, m)
	defer inst.Close(context.Background())

	code, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 2 {
		t.Errorf("exit code = %d, want argc 2", code)
	}
	if stdout.String() != "x" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "x")
	}
}

func TestCallPrintf(t *testing.T) {
	var stdout bytes.Buffer
	m := load(t, guestWasm(false), &runtime.Config{Stdout: &stdout, Host: fakeOS{}})
	inst := instantiate(t, m)
	defer inst.Close(context.Background())

	mem := inst.Memory()
	mem.Write(1024, []byte("n=%d %s\n\x00"))
	mem.Write(1100, []byte("ok\x00"))
	mem.WriteUint32Le(2048, 42)
	mem.WriteUint32Le(2052, 1100)

	res, err := inst.Call(context.Background(), "call_printf", 1024, 2048)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := api.DecodeI32(res[0]); got != 8 {
		t.Errorf("printf returned %d, want 8", got)
	}
	if stdout.String() != "n=42 ok\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestCallGetcwd(t *testing.T) {
	mappings := pathmap.NewTable()
	mappings.Set(".", "/srv/app")
	m := load(t, guestWasm(false), &runtime.Config{Stdout: io.Discard, Host: fakeOS{cwd: "/elsewhere"}, Mappings: mappings})
	inst := instantiate(t, m)
	defer inst.Close(context.Background())
	ctx := context.Background()

	res, err := inst.Call(ctx, "call_getcwd", 8192, 64)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := api.DecodeI32(res[0]); got != 9 {
		t.Errorf("getcwd returned %d, want 9", got)
	}
	buf, _ := inst.Memory().Read(8192, 9)
	if string(buf) != "/srv/app\x00" {
		t.Errorf("buffer = %q", buf)
	}

	res, err = inst.Call(ctx, "call_getcwd", 8192, 4)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := api.DecodeI32(res[0]); got != -int32(syscall.ERANGE) {
		t.Errorf("getcwd with short buffer returned %d, want -ERANGE", got)
	}
}

func TestCallUnknownExport(t *testing.T) {
	m := load(t, guestWasm(false), &runtime.Config{Stdout: io.Discard, Host: fakeOS{}})
	inst := instantiate(t, m)
	defer inst.Close(context.Background())

	_, err := inst.Call(context.Background(), "nope")
	if !errors.Is(err, emerrors.NotFound(emerrors.PhaseRuntime, "", "")) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestSingleLiveInstance(t *testing.T) {
	ctx := context.Background()
	m := load(t, guestWasm(false), &runtime.Config{Stdout: io.Discard, Host: fakeOS{}})
	inst := instantiate(t, m)

	if _, err := m.Instantiate(ctx); err == nil {
		t.Fatal("second live instance allowed")
	}
	if err := inst.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := inst.Call(ctx, "malloc", 4); err == nil {
		t.Error("call on closed instance succeeded")
	}

	again := instantiate(t, m)
	defer again.Close(ctx)
	if g := again.Guest().ExportedGlobal("ctors_ran"); api.DecodeI32(g.Get()) != 1 {
		t.Error("re-instantiated guest not initialized")
	}
}

func TestLoadMissingImports(t *testing.T) {
	_, err := runtime.Load(context.Background(), guestWasm(true), &runtime.Config{Stdout: io.Discard})
	var missing *emerrors.MissingImportsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want missing imports", err)
	}
	if len(missing.Functions) != 1 || missing.Functions[0] != "abort" {
		t.Errorf("missing = %v", missing.Functions)
	}
}

func TestTrapMissing(t *testing.T) {
	m := load(t, guestWasm(true), &runtime.Config{Stdout: io.Discard, Host: fakeOS{}, TrapMissing: true})
	if stubs := m.Stubs(); len(stubs) != 1 || stubs[0].Name != "abort" {
		t.Fatalf("stubs = %+v", stubs)
	}
	inst := instantiate(t, m)
	defer inst.Close(context.Background())

	_, err := inst.Call(context.Background(), "call_abort")
	if err == nil {
		t.Fatal("stub did not trap")
	}
	if !errors.Is(err, &emerrors.Error{Phase: emerrors.PhaseRuntime, Kind: emerrors.KindTrap}) {
		t.Errorf("error %v is not a trap", err)
	}
	if !errors.Is(err, emerrors.Unsupported(emerrors.PhaseHost, "")) {
		t.Errorf("trap %v does not carry the stub's error", err)
	}
}

func TestLoadRejects(t *testing.T) {
	nonEmscripten := (&module.Descriptor{
		Imports: []module.Import{
			{Module: "env", Name: "memory", Desc: module.ImportDesc{Kind: module.KindMemory, Memory: &module.MemoryType{Limits: module.Limits{Min: 1}}}},
		},
	}).Encode()

	tests := []struct {
		name string
		wasm []byte
		want error
	}{
		{"garbage", []byte("not wasm"), emerrors.Load("", nil)},
		{"not emscripten", nonEmscripten, emerrors.InvalidInput(emerrors.PhaseLoad, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.Load(context.Background(), tt.wasm, &runtime.Config{Stdout: io.Discard})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
