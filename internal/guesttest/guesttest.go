// Package guesttest provides in-memory stand-ins for guest memory and
// allocator exports, for tests that exercise marshaling without wazero.
package guesttest

import (
	"bytes"
	"context"
	"errors"

	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/host"
	"github.com/wippyai/wasm-emscripten/pathmap"
)

// Memory is a fixed-size linear memory.
type Memory struct {
	Data []byte
}

// NewMemory returns a zeroed memory of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{Data: make([]byte, size)}
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.Data))
}

func (m *Memory) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(m.Data)) {
		return nil, false
	}
	return m.Data[offset:end], true
}

// ErrExhausted is returned once an allocator runs past its limit.
var ErrExhausted = errors.New("allocator exhausted")

// BumpAllocator hands out aligned, never-freed regions from Next upward.
// It records every request.
type BumpAllocator struct {
	Next  uint32
	Limit uint32
	Align uint32
	Calls []uint32
}

func (a *BumpAllocator) Alloc(_ context.Context, size uint32) (uint32, error) {
	a.Calls = append(a.Calls, size)
	align := a.Align
	if align == 0 {
		align = 8
	}
	ptr := (a.Next + align - 1) &^ (align - 1)
	if a.Limit != 0 && ptr+size > a.Limit {
		return 0, ErrExhausted
	}
	a.Next = ptr + size
	return ptr, nil
}

// StackAllocator mimics Emscripten's stackAlloc: it grows down from Top.
type StackAllocator struct {
	Top   uint32
	Calls []uint32
}

func (a *StackAllocator) Alloc(_ context.Context, size uint32) (uint32, error) {
	a.Calls = append(a.Calls, size)
	if size > a.Top {
		return 0, ErrExhausted
	}
	a.Top = (a.Top - size) &^ 15
	return a.Top, nil
}

// Env bundles a guest context with the fakes behind it.
type Env struct {
	Ctx    *guest.Context
	Mem    *Memory
	Heap   *BumpAllocator
	Stack  *StackAllocator
	Stdout *bytes.Buffer
}

// New returns a context over 64KiB of memory with the heap starting at 1024
// and the stack growing down from the top. os may be nil.
func New(os host.OS, mappings *pathmap.Table) *Env {
	mem := NewMemory(65536)
	env := &Env{
		Mem:    mem,
		Heap:   &BumpAllocator{Next: 1024, Limit: 32768},
		Stack:  &StackAllocator{Top: 65536},
		Stdout: &bytes.Buffer{},
	}
	if mappings == nil {
		mappings = pathmap.NewTable()
	}
	env.Ctx = &guest.Context{
		Memory:   mem,
		Heap:     env.Heap,
		Stack:    env.Stack,
		Mappings: mappings,
		Host:     os,
		Stdout:   env.Stdout,
	}
	return env
}

// PutCStr writes s and a terminating NUL at offset and returns offset.
func (e *Env) PutCStr(offset uint32, s string) uint32 {
	copy(e.Mem.Data[offset:], s)
	e.Mem.Data[offset+uint32(len(s))] = 0
	return offset
}

// Recover runs fn and returns the value it panicked with, or nil.
func Recover(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}
