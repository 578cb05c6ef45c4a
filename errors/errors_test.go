package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLayout,
				Kind:   KindMisaligned,
				Path:   []string{"passwd", "pw_name"},
				Detail: "offset 3 is not aligned to 4",
			},
			contains: []string{"[layout]", "misaligned", "passwd.pw_name", "offset 3"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMarshal,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[marshal]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseMarshal,
				Kind:   KindAllocation,
				Detail: "malloc failed",
				Cause:  errors.New("wasm trap"),
			},
			contains: []string{"[marshal]", "allocation", "malloc failed", "caused by", "wasm trap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindNotFound,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseIntrospect,
		Kind:  KindMissingImport,
		Path:  []string{"table"},
	}

	if !err.Is(&Error{Phase: PhaseIntrospect, Kind: KindMissingImport}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindMissingImport}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseIntrospect, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseIntrospect, Kind: KindMissingImport}) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseResolve, KindInvalidUTF8).
		Path("path").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "text", "bytes").
		Build()

	if err.Phase != PhaseResolve {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseResolve)
	}
	if err.Kind != KindInvalidUTF8 {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
	}
	if len(err.Path) != 1 || err.Path[0] != "path" {
		t.Errorf("Path = %v, want [path]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected text, got bytes" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Misaligned", func(t *testing.T) {
		err := Misaligned(PhaseLayout, []string{"passwd"}, 6, 4)
		if err.Kind != KindMisaligned {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMisaligned)
		}
		if err.Value != uint32(6) {
			t.Errorf("Value = %v, want 6", err.Value)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMarshal, 65530, 10, 65536)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if !strings.Contains(err.Detail, "65540") {
			t.Errorf("Detail = %q, should contain range end", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseMarshal, []string{"cstr"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %q, should contain hex preview", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseMarshal, "malloc", 1024, errors.New("trap"))
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %q, should contain size", err.Detail)
		}
	})

	t.Run("MissingExport", func(t *testing.T) {
		err := MissingExport(PhaseMarshal, "stackAlloc", "_stackAlloc")
		if err.Kind != KindMissingExport {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMissingExport)
		}
		if !strings.Contains(err.Detail, "_stackAlloc") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("MissingImport", func(t *testing.T) {
		err := MissingImport(PhaseIntrospect, "table")
		if err.Kind != KindMissingImport {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMissingImport)
		}
	})
}

func TestFatal(t *testing.T) {
	want := Unsupported(PhaseHost, "chroot")
	defer func() {
		got, ok := recover().(*Error)
		if !ok || got != want {
			t.Errorf("recovered %v, want %v", got, want)
		}
	}()
	Fatal(want)
	t.Fatal("Fatal returned")
}

func TestMissingImportsError(t *testing.T) {
	t.Run("lists functions", func(t *testing.T) {
		err := NewMissingImportsError("env", []string{"abort", "_ZN3foo3barE"})
		msg := err.Error()
		for _, s := range []string{"missing 2", "env", "abort", "foo::bar"} {
			if !strings.Contains(msg, s) {
				t.Errorf("error %q should contain %q", msg, s)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingImportsError("env", nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError("env", []string{"abort"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}

func TestDemangle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "printf", expected: "printf"},
		{input: "_ZN5state6updateEv", expected: "state::update"},
		{input: "_ZN", expected: "_ZN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := demangle(tt.input); got != tt.expected {
				t.Errorf("demangle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrap(t *testing.T) {
	cause := InvalidInput(PhaseHost, "bad pointer")
	err := Trap("main", cause)
	if err.Kind != KindTrap || err.Phase != PhaseRuntime {
		t.Errorf("got %s/%s", err.Phase, err.Kind)
	}
	if !strings.Contains(err.Error(), "call main") {
		t.Errorf("message %q lacks function name", err.Error())
	}
	var target *Error
	if !errors.As(err.Cause, &target) || target.Kind != KindInvalidInput {
		t.Error("cause not reachable")
	}
}

func TestCatch(t *testing.T) {
	run := func() (err error) {
		defer Catch(&err)
		Fatal(NotFound(PhaseHost, "export", "malloc"))
		return nil
	}
	err := run()
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNotFound {
		t.Fatalf("Catch stored %v", err)
	}

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	func() {
		var err error
		defer Catch(&err)
		panic("boom")
	}()
}
