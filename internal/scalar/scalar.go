package scalar

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the decoded type of a Value.
type Kind uint8

const (
	KindStr Kind = iota
	KindBool
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "str"
	}
}

// Value is one decoded scalar with its wire formatting context.
// Precision is the fractional digit count observed in the source token
// and is only meaningful for KindFloat.
type Value struct {
	Kind      Kind
	Bool      bool
	Int       int64
	Float     float64
	Str       string
	Precision int
}

// Parse decodes a raw token into a typed Value. Order matters: boolean
// literals, hex integers, decimal integers, floats, then plain text.
func Parse(token string) Value {
	v := strings.TrimSpace(token)
	switch strings.ToLower(v) {
	case "true":
		return Value{Kind: KindBool, Bool: true}
	case "false":
		return Value{Kind: KindBool, Bool: false}
	}
	if strings.HasPrefix(v, "0x") {
		if n, err := strconv.ParseInt(v[2:], 16, 64); err == nil {
			return Value{Kind: KindInt, Int: n}
		}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return Value{Kind: KindInt, Int: n}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return Value{Kind: KindFloat, Float: f, Precision: CountDecimals(v)}
	}
	return Value{Kind: KindStr, Str: v}
}

// CountDecimals reports how many digit characters follow the decimal
// point in the first whitespace token of text. Zero when there is none.
func CountDecimals(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	_, frac, found := strings.Cut(fields[0], ".")
	if !found {
		return 0
	}
	n := 0
	for _, r := range frac {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// FormatForWrite renders a Value as a protocol token. Floats with a known
// precision render fixed-point with exactly that many fractional digits.
func FormatForWrite(v Value) string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		if v.Precision > 0 {
			return strconv.FormatFloat(v.Float, 'f', v.Precision, 64)
		}
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// Quantize rounds f to p fractional digits, half away from zero.
func Quantize(f float64, p int) float64 {
	if p <= 0 {
		return f
	}
	shift := math.Pow(10, float64(p))
	return math.Round(f*shift) / shift
}

// ApproxEqual compares a readback against the value that was written,
// dispatching on the written value's kind. Floats with a known precision
// tolerate half a step at that precision plus a small relative slack;
// precision-free floats get a looser relative tolerance. Integers truncate
// before comparing, booleans and text compare exactly. Operands that
// cannot be converted compare unequal.
func ApproxEqual(expected, actual Value, precision int) bool {
	switch expected.Kind {
	case KindFloat:
		e, ok := expected.AsFloat()
		if !ok {
			return false
		}
		a, ok := actual.AsFloat()
		if !ok {
			return false
		}
		if precision > 0 {
			step := math.Pow(10, -float64(precision))
			return isClose(e, a, 1e-4, 0.6*step)
		}
		return isClose(e, a, 5e-3, 1e-6)
	case KindInt:
		e, ok := expected.AsInt()
		if !ok {
			return false
		}
		a, ok := actual.AsInt()
		if !ok {
			return false
		}
		return e == a
	case KindBool:
		b, ok := actual.AsBool()
		return ok && expected.Bool == b
	default:
		return FormatForWrite(expected) == FormatForWrite(actual)
	}
}

// AsBool reduces boolean and numeric kinds to truthiness.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindInt:
		return v.Int != 0, true
	case KindFloat:
		return v.Float != 0, true
	default:
		return false, false
	}
}

// AsFloat converts numeric and boolean kinds to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// AsInt converts numeric kinds to int64, truncating floats.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		return int64(v.Float), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
}

func isClose(a, b, relTol, absTol float64) bool {
	return math.Abs(a-b) <= math.Max(relTol*math.Max(math.Abs(a), math.Abs(b)), absTol)
}
