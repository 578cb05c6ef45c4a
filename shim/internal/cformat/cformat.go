// Package cformat interprets C printf format strings against a va_list laid
// out in wasm32 guest memory.
package cformat

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args reads successive variadic arguments. Each method consumes one
// argument of the given width, honouring its natural alignment.
type Args interface {
	Next32() uint32
	Next64() uint64
	// Next128 returns a long double as its low and high 64-bit halves.
	Next128() (lo, hi uint64)
	// CString returns the NUL-terminated string at ptr.
	CString(ptr uint32) []byte
}

// MaxField bounds widths and precisions. Both come from the guest, either
// in the format or through '*', and larger values are clamped.
const MaxField = 4096

func clampField(n int64) int {
	if n > MaxField {
		return MaxField
	}
	return int(n)
}

type length int

const (
	lenDefault length = iota
	lenChar
	lenShort
	lenLong
	lenLongLong
	lenSize
	lenIntmax
	lenPtrdiff
	lenLongDouble
)

type directive struct {
	flags     string
	width     int
	precision int // -1 when absent
	length    length
	verb      byte
}

// Format expands format with arguments drawn from args.
func Format(format []byte, args Args) []byte {
	var out bytes.Buffer
	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			j := bytes.IndexByte(format[i:], '%')
			if j < 0 {
				out.Write(format[i:])
				break
			}
			out.Write(format[i : i+j])
			i += j
			continue
		}

		start := i
		s, next, ok := parseDirective(format, i+1, args)
		i = next
		if !ok {
			// Unknown or truncated conversion: emit it unchanged.
			out.Write(format[start:next])
			continue
		}
		s.write(&out, args)
	}
	return out.Bytes()
}

func parseDirective(f []byte, i int, args Args) (directive, int, bool) {
	s := directive{precision: -1}

	flagStart := i
	for i < len(f) && strings.IndexByte("-+ #0", f[i]) >= 0 {
		i++
	}
	s.flags = string(f[flagStart:i])

	if i < len(f) && f[i] == '*' {
		w := int64(int32(args.Next32()))
		if w < 0 {
			s.flags += "-"
			w = -w
		}
		s.width = clampField(w)
		i++
	} else {
		s.width, i = parseInt(f, i)
	}

	if i < len(f) && f[i] == '.' {
		i++
		if i < len(f) && f[i] == '*' {
			p := int64(int32(args.Next32()))
			if p >= 0 {
				s.precision = clampField(p)
			}
			i++
		} else {
			s.precision, i = parseInt(f, i)
		}
	}

	s.length, i = parseLength(f, i)

	if i >= len(f) {
		return s, i, false
	}
	s.verb = f[i]
	i++
	switch s.verb {
	case 'd', 'i', 'u', 'x', 'X', 'o', 'c', 's', 'p', 'f', 'F', 'e', 'E', 'g', 'G', '%':
		return s, i, true
	}
	return s, i, false
}

func parseInt(f []byte, i int) (int, int) {
	var n int64
	for i < len(f) && f[i] >= '0' && f[i] <= '9' {
		if n <= MaxField {
			n = n*10 + int64(f[i]-'0')
		}
		i++
	}
	return clampField(n), i
}

func parseLength(f []byte, i int) (length, int) {
	if i >= len(f) {
		return lenDefault, i
	}
	switch f[i] {
	case 'h':
		if i+1 < len(f) && f[i+1] == 'h' {
			return lenChar, i + 2
		}
		return lenShort, i + 1
	case 'l':
		if i+1 < len(f) && f[i+1] == 'l' {
			return lenLongLong, i + 2
		}
		return lenLong, i + 1
	case 'q':
		return lenLongLong, i + 1
	case 'z':
		return lenSize, i + 1
	case 'j':
		return lenIntmax, i + 1
	case 't':
		return lenPtrdiff, i + 1
	case 'L':
		return lenLongDouble, i + 1
	}
	return lenDefault, i
}

// wide reports whether an integer argument occupies 64 bits on wasm32.
func (s directive) wide() bool {
	return s.length == lenLongLong || s.length == lenIntmax
}

func (s directive) signed(args Args) int64 {
	if s.wide() {
		return int64(args.Next64())
	}
	v := args.Next32()
	switch s.length {
	case lenChar:
		return int64(int8(v))
	case lenShort:
		return int64(int16(v))
	}
	return int64(int32(v))
}

func (s directive) unsigned(args Args) uint64 {
	if s.wide() {
		return args.Next64()
	}
	v := args.Next32()
	switch s.length {
	case lenChar:
		return uint64(uint8(v))
	case lenShort:
		return uint64(uint16(v))
	}
	return uint64(v)
}

func (s directive) goVerb(verb byte, flags string, precision int) string {
	b := []byte{'%'}
	b = append(b, flags...)
	if s.width > 0 {
		b = strconv.AppendInt(b, int64(s.width), 10)
	}
	if precision >= 0 {
		b = append(b, '.')
		b = strconv.AppendInt(b, int64(precision), 10)
	}
	return string(append(b, verb))
}

func (s directive) write(out *bytes.Buffer, args Args) {
	flags := s.flags
	// C ignores 0 when a precision is given for integers or when - is set.
	intFlags := flags
	if s.precision >= 0 || strings.IndexByte(flags, '-') >= 0 {
		intFlags = without(flags, '0')
	}

	switch s.verb {
	case '%':
		out.WriteByte('%')

	case 'd', 'i':
		v := s.signed(args)
		if s.precision == 0 && v == 0 {
			s.pad(out, nil, without(intFlags, '0'))
			return
		}
		fmt.Fprintf(out, s.goVerb('d', without(intFlags, '#'), s.precision), v)

	case 'u':
		v := s.unsigned(args)
		if s.precision == 0 && v == 0 {
			s.pad(out, nil, without(intFlags, '0'))
			return
		}
		fmt.Fprintf(out, s.goVerb('d', without(without(intFlags, '+'), ' '), s.precision), v)

	case 'x', 'X', 'o':
		v := s.unsigned(args)
		f := without(without(intFlags, '+'), ' ')
		if v == 0 && s.verb != 'o' {
			f = without(f, '#')
		}
		if s.precision == 0 && v == 0 {
			s.pad(out, nil, without(f, '0'))
			return
		}
		fmt.Fprintf(out, s.goVerb(s.verb, f, s.precision), v)

	case 'c':
		s.pad(out, []byte{byte(args.Next32())}, without(flags, '0'))

	case 's':
		ptr := args.Next32()
		var str []byte
		if ptr == 0 {
			str = []byte("(null)")
		} else {
			str = args.CString(ptr)
		}
		if s.precision >= 0 && s.precision < len(str) {
			str = str[:s.precision]
		}
		s.pad(out, str, without(flags, '0'))

	case 'p':
		ptr := args.Next32()
		s.pad(out, []byte(fmt.Sprintf("0x%x", ptr)), without(flags, '0'))

	case 'f', 'F', 'e', 'E', 'g', 'G':
		var v float64
		if s.length == lenLongDouble {
			v = float128ToFloat64(args.Next128())
		} else {
			v = math.Float64frombits(args.Next64())
		}
		s.writeFloat(out, v, flags)
	}
}

func (s directive) writeFloat(out *bytes.Buffer, v float64, flags string) {
	upper := s.verb == 'F' || s.verb == 'E' || s.verb == 'G'
	if math.IsInf(v, 0) || math.IsNaN(v) {
		var text string
		switch {
		case math.IsNaN(v):
			text = "nan"
		case v > 0:
			text = "inf"
		default:
			text = "-inf"
		}
		if v > 0 || math.IsNaN(v) {
			if strings.IndexByte(flags, '+') >= 0 {
				text = "+" + text
			} else if strings.IndexByte(flags, ' ') >= 0 {
				text = " " + text
			}
		}
		if upper {
			text = strings.ToUpper(text)
		}
		s.pad(out, []byte(text), without(flags, '0'))
		return
	}

	precision := s.precision
	if precision < 0 {
		precision = 6
	}
	verb := s.verb
	if verb == 'F' {
		verb = 'f'
	}
	if (verb == 'g' || verb == 'G') && precision == 0 {
		precision = 1
	}
	fmt.Fprintf(out, s.goVerb(verb, flags, precision), v)
}

// pad writes text padded to the field width with spaces.
func (s directive) pad(out *bytes.Buffer, text []byte, flags string) {
	fill := s.width - len(text)
	left := strings.IndexByte(flags, '-') >= 0
	if !left {
		for ; fill > 0; fill-- {
			out.WriteByte(' ')
		}
	}
	out.Write(text)
	for ; fill > 0; fill-- {
		out.WriteByte(' ')
	}
}

func without(flags string, flag byte) string {
	return strings.ReplaceAll(flags, string(flag), "")
}

// float128ToFloat64 narrows an IEEE binary128 value, as used for long
// double on wasm32, to the nearest float64 by truncation.
func float128ToFloat64(lo, hi uint64) float64 {
	sign := hi >> 63
	exp := int64((hi >> 48) & 0x7fff)
	// Top 52 of the 112 fraction bits: 48 from hi, 4 from lo.
	frac := (hi&0xffff_ffff_ffff)<<4 | lo>>60

	switch {
	case exp == 0x7fff:
		if frac != 0 || lo<<4 != 0 {
			return math.NaN()
		}
		return math.Inf(1 - 2*int(sign))
	case exp == 0 && frac == 0:
		return math.Float64frombits(sign << 63)
	}

	e := exp - 16383 + 1023
	switch {
	case e >= 0x7ff:
		return math.Inf(1 - 2*int(sign))
	case e <= 0:
		// Subnormal in float64: shift the implicit bit into the fraction.
		shift := 1 - e
		if shift > 53 {
			return math.Float64frombits(sign << 63)
		}
		frac = (frac | 1<<52) >> uint(shift)
		e = 0
	}
	return math.Float64frombits(sign<<63 | uint64(e)<<52 | frac)
}
