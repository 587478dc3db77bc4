package contractvalue

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// MaxDepth bounds how many array or record layers are unwrapped before a value
// is rendered with generic stringification instead.
const MaxDepth = 8

// Conventional record members that carry the payload, in priority order.
var payloadFields = []string{"result", "value", "data"}

var (
	decimalIntRe   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	hexIntRe       = regexp.MustCompile(`^[+-]?0[xX][0-9a-fA-F]+$`)
	decimalFloatRe = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// unwrap strips array and record layers until a scalar is reached. Empty
// arrays unwrap to Null. Records without a usable payload field, and values
// still wrapped after MaxDepth layers, are returned as they are.
func unwrap(v Value) Value {
	for depth := 0; ; depth++ {
		var next Value
		switch v.kind {
		case KindArray:
			if len(v.elems) == 0 {
				return Null()
			}
			next = v.elems[0]
		case KindRecord:
			inner, ok := v.payload()
			if !ok {
				return v
			}
			next = inner
		default:
			return v
		}
		if depth == MaxDepth {
			return v
		}
		v = next
	}
}

// payload selects the member of a record that carries its value.
func (v Value) payload() (Value, bool) {
	switch len(v.fields) {
	case 0:
		return Null(), false
	case 1:
		return v.fields[0].Value, true
	}
	for _, name := range payloadFields {
		if inner, ok := v.Field(name); ok {
			return inner, true
		}
	}
	for _, f := range v.fields {
		if f.Value.numericLike() {
			return f.Value, true
		}
	}
	return Null(), false
}

func (v Value) numericLike() bool {
	switch v.kind {
	case KindNumber, KindBigInt:
		return true
	case KindString:
		_, _, ok := parseNumeric(v.str)
		return ok
	}
	return false
}

// parseNumeric interprets a numeric string. Integers (decimal or 0x-hex) are
// returned exactly alongside their float approximation.
func parseNumeric(s string) (float64, *big.Int, bool) {
	s = strings.TrimSpace(s)
	switch {
	case decimalIntRe.MatchString(s):
		i, ok := new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
		if !ok {
			return 0, nil, false
		}
		return bigToFloat(i), i, true
	case hexIntRe.MatchString(s):
		neg := strings.HasPrefix(s, "-")
		digits := strings.TrimLeft(s, "+-")[2:]
		i, ok := new(big.Int).SetString(digits, 16)
		if !ok {
			return 0, nil, false
		}
		if neg {
			i.Neg(i)
		}
		return bigToFloat(i), i, true
	case decimalFloatRe.MatchString(s):
		f, err := strconv.ParseFloat(s, 64)
		if err != nil && !isRangeErr(err) {
			return 0, nil, false
		}
		return f, nil, true
	}
	return 0, nil, false
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func bigToFloat(i *big.Int) float64 {
	f, _ := new(big.Float).SetInt(i).Float64()
	return f
}

// numeric returns the float approximation of a scalar and, when the scalar is
// an exact integer, its big integer value.
func numeric(v Value) (float64, *big.Int, bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, nil, false
		}
		if v.num == math.Trunc(v.num) {
			i, _ := new(big.Float).SetFloat64(v.num).Int(nil)
			return v.num, i, true
		}
		return v.num, nil, true
	case KindBigInt:
		return bigToFloat(v.big), v.big, true
	case KindString:
		return parseNumeric(v.str)
	}
	return 0, nil, false
}

// ToDisplayString renders a value for display. Absent values, including empty
// arrays, render as def; callers pick "?" for pending reads or "0" for numeric
// displays. Big integers are rendered exactly.
func ToDisplayString(v Value, def string) string {
	leaf := unwrap(v)
	switch leaf.kind {
	case KindNull:
		return def
	case KindNumber:
		return formatNumber(leaf.num)
	case KindBigInt:
		return leaf.big.String()
	case KindString:
		return leaf.str
	}
	return Stringify(leaf)
}

// ToNumericString is like ToDisplayString but yields def when the unwrapped
// value is not numeric.
func ToNumericString(v Value, def string) string {
	leaf := unwrap(v)
	switch leaf.kind {
	case KindNumber:
		if math.IsNaN(leaf.num) || math.IsInf(leaf.num, 0) {
			return def
		}
		return formatNumber(leaf.num)
	case KindBigInt:
		return leaf.big.String()
	case KindString:
		if _, _, ok := parseNumeric(leaf.str); ok {
			return strings.TrimSpace(leaf.str)
		}
	}
	return def
}

// ToSafeNumber converts a value to a float64, yielding 0 for anything that is
// not a finite number. Integers above 2^53 lose precision; use ToSafeBigInt
// for amounts.
func ToSafeNumber(v Value) float64 {
	f, _, ok := numeric(unwrap(v))
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToSafeBigInt converts a value to an exact big integer, yielding 0 when the
// value is not an integer.
func ToSafeBigInt(v Value) *big.Int {
	_, i, ok := numeric(unwrap(v))
	if !ok || i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(i)
}

// ToHexString renders an integer value as 0x-prefixed lowercase hex. The
// boolean is false when the value is not an exact integer.
func ToHexString(v Value) (string, bool) {
	_, i, ok := numeric(unwrap(v))
	if !ok || i == nil {
		return "", false
	}
	if i.Sign() < 0 {
		return "-0x" + new(big.Int).Neg(i).Text(16), true
	}
	return "0x" + i.Text(16), true
}

// IsZero reports whether a value is numerically zero. Unknown values count as
// zero.
func IsZero(v Value) bool {
	f, i, ok := numeric(unwrap(v))
	if !ok {
		return true
	}
	if i != nil {
		return i.Sign() == 0
	}
	return f == 0
}

// FormatAddress shortens an address for display as 0x1234...cdef. Strings of
// at most 10 characters are returned unchanged.
func FormatAddress(v Value) string {
	addr := []rune(ToDisplayString(v, ""))
	if len(addr) <= 10 {
		return string(addr)
	}
	return string(addr[:6]) + "..." + string(addr[len(addr)-4:])
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
