// Package core provides the foundational value and logging abstractions
// shared by the condition, audience, and bucketing packages: the
// heterogeneous scalar type attribute and condition values are expressed
// in, the three-valued logic result type, and the Logger interface the
// decision engine reports through.
package core

import "strconv"

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the small sum type {String, Number, Bool, Null} that both
// condition literals and user attribute values are expressed in. Number
// preserves whether the source literal was integral, but that bit only
// ever affects logging — equality and comparison always promote both
// sides to a common finite float64.
type Value struct {
	kind   Kind
	str    string
	num    float64
	isInt  bool
	b      bool
	absent bool // true only for Absent
}

// Null is the explicit JSON-null / present-but-empty value.
var Null = Value{kind: KindNull}

// Absent represents a key that was never set, distinct from Null (a key
// that was set to an explicit null). IsAbsent reports true only for it.
var Absent = Value{kind: KindNull, absent: true}

// String constructs a string-kind Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a fractional number-kind Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int constructs an integral number-kind Value; IsInt() reports true.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i), isInt: true} }

// Bool constructs a bool-kind Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny converts a decoded JSON-ish value (string, float64, bool, nil,
// or an already-integral Go number type) into a Value. Maps and slices
// have no scalar representation and decode to Null.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return numberFromFloat(t)
	case float32:
		return numberFromFloat(float64(t))
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case int32:
		return Int(int64(t))
	default:
		return Null
	}
}

func numberFromFloat(f float64) Value {
	return Value{kind: KindNumber, num: f, isInt: f == float64(int64(f))}
}

// Kind reports which variant is populated.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether this Value represents a missing lookup rather
// than an explicit null.
func (v Value) IsAbsent() bool { return v.absent }

// IsNull reports whether the value is the JSON-null variant (absent also
// reads as null for kind purposes).
func (v Value) IsNull() bool { return v.kind == KindNull }

// StringVal returns the string payload; only meaningful when Kind() == KindString.
func (v Value) StringVal() string { return v.str }

// NumberVal returns the numeric payload; only meaningful when Kind() == KindNumber.
func (v Value) NumberVal() float64 { return v.num }

// IsInt reports whether a KindNumber value's source literal was integral.
// Used only for logging; never for equality or comparison.
func (v Value) IsInt() bool { return v.isInt }

// BoolVal returns the boolean payload; only meaningful when Kind() == KindBool.
func (v Value) BoolVal() bool { return v.b }

// Equal compares two values using exact-match rules: same Kind required,
// Number compares as float64, String and Bool compare directly, Null
// equals Null.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindNull:
		return true
	default:
		return false
	}
}

// String renders the value for logging (leaf JSON / attribute dumps).
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		if v.isInt {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return "null"
	}
}
