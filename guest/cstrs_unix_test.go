//go:build !windows

package guest_test

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/internal/guesttest"
)

func TestCountTerminatedCStrs(t *testing.T) {
	tests := []struct {
		name string
		list [][]byte
		want int
	}{
		{"empty", nil, 0},
		{"terminated", [][]byte{[]byte("a"), []byte("b"), nil, []byte("c")}, 2},
		{"unterminated", [][]byte{[]byte("a"), []byte("b")}, 2},
		{"empty entry", [][]byte{{}, nil}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guest.CountTerminatedCStrs(tt.list); got != tt.want {
				t.Errorf("CountTerminatedCStrs = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCopyTerminatedArrayOfCStrs(t *testing.T) {
	env := guesttest.New(nil, nil)
	got := env.Ctx.CopyTerminatedArrayOfCStrs(context.Background(), [][]byte{[]byte("PATH=/bin"), nil})
	if got != 0 {
		t.Errorf("CopyTerminatedArrayOfCStrs = %d, want 0", got)
	}
	if len(env.Heap.Calls) != 0 {
		t.Error("nothing should be allocated")
	}
}
