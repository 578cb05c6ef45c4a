package shim

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/guest"
)

// Func describes one host function a guest may import from env.
type Func struct {
	Fn      api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

var (
	i32    = api.ValueTypeI32
	none   = []api.ValueType{}
	oneI32 = []api.ValueType{i32}
	twoI32 = []api.ValueType{i32, i32}
)

// contextOf returns the guest context of the current call. Calls arriving
// without one were not started through the runtime and cannot be served.
func contextOf(ctx context.Context) *guest.Context {
	c, ok := guest.FromContext(ctx)
	if !ok {
		errors.Fatal(errors.NotInitialized(errors.PhaseHost, "guest context"))
	}
	return c
}

// Funcs returns every host function the shim provides, under both the
// current and the underscore-prefixed legacy names where Emscripten used
// both.
func Funcs() []Func {
	putchar := func(ctx context.Context, _ api.Module, stack []uint64) {
		Putchar(contextOf(ctx), api.DecodeI32(stack[0]))
	}
	printf := func(ctx context.Context, _ api.Module, stack []uint64) {
		n := Printf(contextOf(ctx), api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
		stack[0] = api.EncodeI32(n)
	}
	chroot := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeI32(Chroot(contextOf(ctx), api.DecodeU32(stack[0])))
	}
	getpwuid := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeU32(Getpwuid(ctx, contextOf(ctx), api.DecodeU32(stack[0])))
	}
	memcpyBig := func(ctx context.Context, _ api.Module, stack []uint64) {
		dest := MemcpyBig(contextOf(ctx), api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
		stack[0] = api.EncodeU32(dest)
	}
	chdir := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeI32(Chdir(contextOf(ctx), api.DecodeU32(stack[0])))
	}
	getcwd := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeI32(Getcwd(contextOf(ctx), api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
	}
	stat64 := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeI32(Stat64(contextOf(ctx), api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
	}
	lstat64 := func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeI32(Lstat64(contextOf(ctx), api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
	}

	threeI32 := []api.ValueType{i32, i32, i32}
	var funcs []Func
	both := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		funcs = append(funcs,
			Func{Name: name, Fn: fn, Params: params, Results: results},
			Func{Name: "_" + name, Fn: fn, Params: params, Results: results},
		)
	}
	both("putchar", putchar, oneI32, none)
	both("printf", printf, twoI32, oneI32)
	both("chroot", chroot, oneI32, oneI32)
	both("getpwuid", getpwuid, oneI32, oneI32)
	both("emscripten_memcpy_big", memcpyBig, threeI32, oneI32)
	funcs = append(funcs,
		Func{Name: "__syscall_chdir", Fn: chdir, Params: oneI32, Results: oneI32},
		Func{Name: "__syscall_getcwd", Fn: getcwd, Params: twoI32, Results: oneI32},
		Func{Name: "__syscall_stat64", Fn: stat64, Params: twoI32, Results: oneI32},
		Func{Name: "__syscall_lstat64", Fn: lstat64, Params: twoI32, Results: oneI32},
	)
	return funcs
}

// Register exports every shim function on b.
func Register(b wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	for _, f := range Funcs() {
		b = b.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, f.Params, f.Results).
			WithName(f.Name).
			Export(f.Name)
	}
	return b
}
