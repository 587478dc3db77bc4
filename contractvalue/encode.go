package contractvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Stringify renders a value generically. Strings are returned verbatim, every
// other shape is rendered as JSON with big integers as exact number literals
// and non-finite numbers as null.
func Stringify(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBigInt:
		return v.big.String()
	}
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.String()
}

func (v Value) String() string { return Stringify(v) }

func writeJSON(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(formatNumber(v.num))
		}
	case KindBigInt:
		buf.WriteString(v.big.String())
	case KindString:
		buf.WriteString(strconv.Quote(v.str))
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, e)
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(f.Name))
			buf.WriteByte(':')
			writeJSON(buf, f.Value)
		}
		buf.WriteByte('}')
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping record fields in
// document order.
func (v *Value) UnmarshalJSON(input []byte) error {
	dec, err := Decode(input)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

var errTrailingData = errors.New("contractvalue: trailing data after JSON value")

// Decode parses a JSON document into a Value. Integer literals become exact
// big integers, other numbers become floats, booleans become strings and
// object members keep their order.
func Decode(input []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Null(), errTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return String(strconv.FormatBool(t)), nil
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(t)
	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				elems = append(elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Value{kind: KindArray, elems: elems}, nil
		case '{':
			var fields []Field
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				name, ok := key.(string)
				if !ok {
					return Null(), fmt.Errorf("contractvalue: unexpected object key %v", key)
				}
				e, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				fields = append(fields, Field{Name: name, Value: e})
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Value{kind: KindRecord, fields: fields}, nil
		}
	}
	return Null(), fmt.Errorf("contractvalue: unexpected token %v", tok)
}

func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if _, i, ok := parseNumeric(s); ok && i != nil {
			return BigInt(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeErr(err) {
		return Null(), err
	}
	return Number(f), nil
}
