// Package contractvalue normalizes dynamically shaped contract call results
// into display-safe primitives.
//
// A decoded contract result may arrive as a bare number, a big integer, a
// numeric string, an array wrapper or a record wrapping any of those. Value
// models every shape explicitly and the conversion functions in this package
// pattern-match over it. All conversions are total: malformed input degrades to
// the caller-supplied default instead of failing.
package contractvalue

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/tos-network/starkcounter"
)

// Kind enumerates the shapes a Value can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBigInt
	KindString
	KindArray
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Field is a named record member. Records keep their fields in order.
type Field struct {
	Name  string
	Value Value
}

// Value is an immutable tagged variant. The zero value is Null.
type Value struct {
	kind   Kind
	num    float64
	big    *big.Int
	str    string
	elems  []Value
	fields []Field
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Number wraps a plain floating point number.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int wraps a machine integer as a big integer so it is never rounded.
func Int(i int64) Value { return BigInt(big.NewInt(i)) }

// BigInt wraps an arbitrary precision integer. The argument is copied.
func BigInt(b *big.Int) Value {
	if b == nil {
		return Null()
	}
	return Value{kind: KindBigInt, big: new(big.Int).Set(b)}
}

// String wraps a string, numeric or not.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array wraps an ordered list of values.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, elems: append([]Value(nil), elems...)}
}

// Record wraps an ordered set of named fields.
func Record(fields ...Field) Value {
	return Value{kind: KindRecord, fields: append([]Field(nil), fields...)}
}

// F is shorthand for constructing a record Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

// Felt wraps a field element as a big integer.
func Felt(f *starkcounter.Felt) Value {
	if f == nil {
		return Null()
	}
	return BigInt(f.Big())
}

// Felts wraps a raw call result as an array of big integers.
func Felts(fs []*starkcounter.Felt) Value {
	elems := make([]Value, len(fs))
	for i, f := range fs {
		elems[i] = Felt(f)
	}
	return Value{kind: KindArray, elems: elems}
}

// From converts a native Go value. Maps become records with their keys in
// sorted order. Unsupported types are stringified with fmt so the conversion
// never fails.
func From(x interface{}) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case bool:
		if v {
			return String("true")
		}
		return String("false")
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return BigInt(new(big.Int).SetUint64(uint64(v)))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return BigInt(new(big.Int).SetUint64(v))
	case float32:
		return Number(float64(v))
	case float64:
		return Number(v)
	case *big.Int:
		return BigInt(v)
	case *uint256.Int:
		if v == nil {
			return Null()
		}
		return BigInt(v.ToBig())
	case *starkcounter.Felt:
		return Felt(v)
	case []*starkcounter.Felt:
		return Felts(v)
	case string:
		return String(v)
	case []Value:
		return Array(v...)
	case []interface{}:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = From(e)
		}
		return Value{kind: KindArray, elems: elems}
	case []Field:
		return Record(v...)
	case map[string]interface{}:
		return fromMap(v)
	default:
		return String(fmt.Sprint(v))
	}
}

func fromMap(m map[string]interface{}) Value {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Value: From(m[name])}
	}
	return Value{kind: KindRecord, fields: fields}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Len returns the number of array elements or record fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindRecord:
		return len(v.fields)
	}
	return 0
}

// Index returns the i'th array element, or Null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.elems) {
		return Null()
	}
	return v.elems[i]
}

// Field returns the named record member.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindRecord {
		return Null(), false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null(), false
}

// Fields returns a copy of the record members.
func (v Value) Fields() []Field {
	if v.kind != KindRecord {
		return nil
	}
	return append([]Field(nil), v.fields...)
}
