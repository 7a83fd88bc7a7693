// Package order models the heterogeneous order records returned by the order search API.
//
// Field presence and type vary per response, so every record is an ordered mapping from
// field name to a tagged Value. Callers check presence explicitly with Record.Get.
package order

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindNull is a JSON null.
	KindNull Kind = iota

	// KindInteger is a whole number without a fractional part in its wire form.
	KindInteger

	// KindFloat is a number written with a fraction or exponent.
	KindFloat

	// KindText is a string, or a nested object/array kept as compact JSON.
	KindText

	// KindBool is a JSON boolean.
	KindBool
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a single field value of an order record.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

// Null returns a null value.
func Null() Value { return Value{kind: KindNull} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind reports the type held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is a JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether v holds an integer or a float.
func (v Value) IsNumeric() bool { return v.kind == KindInteger || v.kind == KindFloat }

// Int64 returns the integer held by v. ok is false for any other kind.
func (v Value) Int64() (n int64, ok bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// Float64 returns v as a float for both numeric kinds.
func (v Value) Float64() (f float64, ok bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// String returns the plain string form of v. Null renders as an empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Format returns the display form used in report cells: numbers get thousands
// separators (floats with two decimals), everything else its plain string form.
func (v Value) Format() string {
	switch v.kind {
	case KindInteger:
		return FormatInt(v.i)
	case KindFloat:
		return FormatFloat(v.f)
	default:
		return v.String()
	}
}

// valueFromJSON converts a value decoded with json.Decoder.UseNumber into a Value.
func valueFromJSON(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return Text(x)
	case json.Number:
		return numberValue(x)
	default:
		// Objects and arrays are kept as compact JSON text.
		data, err := json.Marshal(x)
		if err != nil {
			return Text("")
		}
		return Text(string(data))
	}
}

func numberValue(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Text(s)
	}
	return Float(f)
}
