package cformat

import (
	"encoding/binary"
	"math"
	"testing"
)

// vaList lays arguments out the way clang does for wasm32 and reads them
// back through Args.
type vaList struct {
	buf     []byte
	pos     int
	strings map[uint32]string
}

func newVaList() *vaList {
	return &vaList{strings: make(map[uint32]string)}
}

func (v *vaList) align(n int) {
	for len(v.buf)%n != 0 {
		v.buf = append(v.buf, 0)
	}
}

func (v *vaList) i32(x int32) *vaList {
	v.align(4)
	v.buf = binary.LittleEndian.AppendUint32(v.buf, uint32(x))
	return v
}

func (v *vaList) i64(x int64) *vaList {
	v.align(8)
	v.buf = binary.LittleEndian.AppendUint64(v.buf, uint64(x))
	return v
}

func (v *vaList) f64(x float64) *vaList {
	v.align(8)
	v.buf = binary.LittleEndian.AppendUint64(v.buf, math.Float64bits(x))
	return v
}

func (v *vaList) str(ptr uint32, s string) *vaList {
	v.strings[ptr] = s
	return v.i32(int32(ptr))
}

func (v *vaList) Next32() uint32 {
	v.pos = (v.pos + 3) &^ 3
	x := binary.LittleEndian.Uint32(v.buf[v.pos:])
	v.pos += 4
	return x
}

func (v *vaList) Next64() uint64 {
	v.pos = (v.pos + 7) &^ 7
	x := binary.LittleEndian.Uint64(v.buf[v.pos:])
	v.pos += 8
	return x
}

func (v *vaList) Next128() (lo, hi uint64) {
	v.pos = (v.pos + 15) &^ 15
	lo = binary.LittleEndian.Uint64(v.buf[v.pos:])
	hi = binary.LittleEndian.Uint64(v.buf[v.pos+8:])
	v.pos += 16
	return lo, hi
}

func (v *vaList) CString(ptr uint32) []byte {
	return []byte(v.strings[ptr])
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   *vaList
		want   string
	}{
		{"literal", "hello world\n", newVaList(), "hello world\n"},
		{"percent", "100%%", newVaList(), "100%"},
		{"int", "%d %i", newVaList().i32(-42).i32(7), "-42 7"},
		{"unsigned", "%u", newVaList().i32(-1), "4294967295"},
		{"width", "[%5d|%-5d|%05d]", newVaList().i32(42).i32(42).i32(-42), "[   42|42   |-0042]"},
		{"plus space", "%+d % d", newVaList().i32(5).i32(5), "+5  5"},
		{"precision int", "%.3d|%6.3d|%06.3d", newVaList().i32(5).i32(5).i32(5), "005|   005|   005"},
		{"zero with zero precision", "[%.0d]", newVaList().i32(0), "[]"},
		{"hex", "%x %X %#x %#x", newVaList().i32(255).i32(255).i32(255).i32(0), "ff FF 0xff 0"},
		{"octal", "%o %#o", newVaList().i32(8).i32(8), "10 010"},
		{"char", "%c%c%3c", newVaList().i32('h').i32('i').i32('!'), "hi  !"},
		{"hh", "%hhd %hhu", newVaList().i32(0x1ff).i32(-1), "-1 255"},
		{"h", "%hd", newVaList().i32(0x18000), "-32768"},
		{"long is 32-bit", "%ld %lu", newVaList().i32(-3).i32(3), "-3 3"},
		{"long long", "%lld %llu", newVaList().i64(-1 << 40).i64(-1), "-1099511627776 18446744073709551615"},
		{"i64 alignment", "%d %lld", newVaList().i32(1).i64(2), "1 2"},
		{"intmax", "%jd", newVaList().i64(1 << 33), "8589934592"},
		{"size_t", "%zu", newVaList().i32(12), "12"},
		{"string", "<%s>", newVaList().str(100, "guest"), "<guest>"},
		{"string width", "[%8s|%-8s]", newVaList().str(100, "ab").str(200, "cd"), "[      ab|cd      ]"},
		{"string precision", "%.3s", newVaList().str(100, "abcdef"), "abc"},
		{"null string", "%s", newVaList().i32(0), "(null)"},
		{"pointer", "%p", newVaList().i32(0x1000), "0x1000"},
		{"star width", "[%*d|%-*d]", newVaList().i32(4).i32(7).i32(3).i32(1), "[   7|1  ]"},
		{"negative star width", "[%*d]", newVaList().i32(-4).i32(7), "[7   ]"},
		{"star precision", "%.*f", newVaList().i32(2).f64(3.14159), "3.14"},
		{"float", "%f %.2f %F", newVaList().f64(1.5).f64(2.005).f64(-0.25), "1.500000 2.00 -0.250000"},
		{"exp", "%e %E", newVaList().f64(12345.678).f64(0.001), "1.234568e+04 1.000000E-03"},
		{"general", "%g %g %g %G", newVaList().f64(100000).f64(1e6).f64(0.0001).f64(1e-5), "100000 1e+06 0.0001 1E-05"},
		{"general precision", "%.3g %.0g", newVaList().f64(1234.5).f64(26), "1.23e+03 3e+01"},
		{"float width", "[%8.3f|%-8.1f|%08.2f]", newVaList().f64(3.14159).f64(2.5).f64(-1.5), "[   3.142|2.5     |-0001.50]"},
		{"inf nan", "%f %f %F %+f", newVaList().f64(math.Inf(1)).f64(math.Inf(-1)).f64(math.NaN()).f64(math.Inf(1)), "inf -inf NAN +inf"},
		{"unknown conversion", "%y %d", newVaList().i32(3), "%y 3"},
		{"trailing percent", "50%", newVaList(), "50%"},
		{"float after int", "%d %f", newVaList().i32(1).f64(2), "1 2.000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Format([]byte(tt.format), tt.args))
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormatClampsFields(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		args    *vaList
		wantLen int
	}{
		{"star width", "%*d", newVaList().i32(0x7fffffff).i32(1), MaxField},
		{"min star width", "%*d", newVaList().i32(math.MinInt32).i32(1), MaxField},
		{"literal width", "%99999999999999999999d", newVaList().i32(1), MaxField},
		{"star precision", "%.*d", newVaList().i32(0x7fffffff).i32(1), MaxField},
		{"float precision", "%.*f", newVaList().i32(0x7fffffff).f64(1), MaxField + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format([]byte(tt.format), tt.args)
			if len(got) != tt.wantLen {
				t.Errorf("len(Format(%q)) = %d, want %d", tt.format, len(got), tt.wantLen)
			}
		})
	}
}

func TestFormatLongDouble(t *testing.T) {
	// binary128 encoding of 1.5: exponent 16383, fraction 0x8000...
	v := newVaList().i32(9)
	v.align(16)
	v.buf = binary.LittleEndian.AppendUint64(v.buf, 0)
	v.buf = binary.LittleEndian.AppendUint64(v.buf, 0x3fff_8000_0000_0000)

	if got := string(Format([]byte("%d %Lf"), v)); got != "9 1.500000" {
		t.Errorf("Format = %q", got)
	}
}

func TestFloat128ToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi uint64
		want   float64
	}{
		{"one", 0, 0x3fff_0000_0000_0000, 1},
		{"minus two", 0, 0xc000_0000_0000_0000, -2},
		{"zero", 0, 0, 0},
		{"pi", 0x8469_898c_c517_01b8, 0x4000_921f_b544_42d1, 3.141592653589793},
		{"inf", 0, 0x7fff_0000_0000_0000, math.Inf(1)},
		{"overflow", 0, 0x7ffe_0000_0000_0000, math.Inf(1)},
		{"underflow", 0, 0x0001_0000_0000_0000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := float128ToFloat64(tt.lo, tt.hi); got != tt.want {
				t.Errorf("float128ToFloat64 = %v, want %v", got, tt.want)
			}
		})
	}
	if got := float128ToFloat64(1, 0x7fff_0000_0000_0000); !math.IsNaN(got) {
		t.Errorf("NaN payload: got %v", got)
	}
}
