// Package value models decoded JSON documents as a closed set of variants.
//
// Every node is exactly one of *Mapping, Sequence or Scalar. Mappings keep
// the member order of the source document, which is the order the renderer
// emits rows in.
package value

import (
	"bytes"
	"encoding/json"
	"strings"
)

// objectText is the textual form of a mapping joined into a cell.
const objectText = "[object Object]"

// Value is a node of a decoded JSON document.
type Value interface {
	// Text returns the textual form of the value.
	Text() string

	isValue()
}

var (
	_ Value = (*Mapping)(nil)
	_ Value = Sequence(nil)
	_ Value = Scalar{}
)

// Member is one key/value pair of a Mapping.
type Member struct {
	Key   string
	Value Value
}

// Mapping is a JSON object with ordered members.
type Mapping struct {
	members []Member
	index   map[string]int
}

// NewMapping returns a mapping holding members in the given order.
// A repeated key overwrites the earlier value in place.
func NewMapping(members ...Member) *Mapping {
	m := &Mapping{index: make(map[string]int, len(members))}
	for _, mb := range members {
		m.Set(mb.Key, mb.Value)
	}
	return m
}

// Set stores v under key, keeping the position of an existing key.
func (m *Mapping) Set(key string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.members[i].Value = v
		return
	}
	m.index[key] = len(m.members)
	m.members = append(m.members, Member{Key: key, Value: v})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.members[i].Value, true
}

// Len returns the number of members.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.members)
}

// Members returns the members in document order. The slice must not be modified.
func (m *Mapping) Members() []Member {
	if m == nil {
		return nil
	}
	return m.members
}

// Keys returns the member keys in document order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, m.Len())
	for _, mb := range m.Members() {
		keys = append(keys, mb.Key)
	}
	return keys
}

func (m *Mapping) Text() string { return objectText }

func (m *Mapping) isValue() {}

// MarshalJSON encodes the mapping keeping member order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, mb := range m.Members() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(mb.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshal(mb.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Sequence is a JSON array.
type Sequence []Value

// Text joins the elements' textual forms with commas.
func (s Sequence) Text() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = ElementText(v)
	}
	return strings.Join(parts, ",")
}

func (s Sequence) isValue() {}

// MarshalJSON encodes the sequence as a JSON array.
func (s Sequence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ElementText returns the textual form of v as an element of a joined
// sequence. Null elements contribute an empty string.
func ElementText(v Value) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(Scalar); ok && s.IsNull() {
		return ""
	}
	return v.Text()
}

func marshal(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Lookup returns v[key] when v is a mapping.
func Lookup(v Value, key string) (Value, bool) {
	m, ok := v.(*Mapping)
	if !ok {
		return nil, false
	}
	return m.Get(key)
}

// LookupString returns v[key] when v is a mapping and the member is a string.
func LookupString(v Value, key string) (string, bool) {
	member, ok := Lookup(v, key)
	if !ok {
		return "", false
	}
	s, ok := member.(Scalar)
	if !ok {
		return "", false
	}
	return s.AsString()
}
