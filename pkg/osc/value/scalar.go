package value

import (
	"encoding/json"
	"strconv"
)

// ScalarKind identifies the JSON type of a Scalar.
type ScalarKind int

const (
	KindNull ScalarKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Scalar is a JSON string, number, boolean or null. Numbers keep the
// literal text of the source document.
type Scalar struct {
	kind ScalarKind
	text string
}

// Str returns a string scalar.
func Str(s string) Scalar { return Scalar{kind: KindString, text: s} }

// Num returns a number scalar. The literal must be a valid JSON number.
func Num(n json.Number) Scalar { return Scalar{kind: KindNumber, text: n.String()} }

// Int returns a number scalar for i.
func Int(i int64) Scalar { return Scalar{kind: KindNumber, text: strconv.FormatInt(i, 10)} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, text: strconv.FormatBool(b)} }

// Null returns the null scalar.
func Null() Scalar { return Scalar{kind: KindNull, text: "null"} }

// Kind reports the JSON type of s.
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNull reports whether s is JSON null.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// AsString returns the string content when s is a string scalar.
func (s Scalar) AsString() (string, bool) {
	if s.kind != KindString {
		return "", false
	}
	return s.text, true
}

// Text returns the plain textual form: string content, the number literal,
// true/false or null.
func (s Scalar) Text() string {
	if s.kind == KindNull {
		return "null"
	}
	return s.text
}

func (s Scalar) isValue() {}

// MarshalJSON encodes s as the JSON literal it was decoded from.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindString:
		return json.Marshal(s.text)
	case KindNumber, KindBool:
		return []byte(s.text), nil
	default:
		return []byte("null"), nil
	}
}
