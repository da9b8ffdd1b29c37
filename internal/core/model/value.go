package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Field is a single member of an object Value.
type Field struct {
	Key   string
	Value Value
}

// Value is a typed JSON tree. Object members keep their document order and
// numbers keep their literal text, so a value renders back the way it was
// written in the spreadsheet cell.
type Value struct {
	kind   Kind
	str    string
	b      bool
	fields []Field
	items  []Value
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a JSON number literal.
func Number(literal string) Value { return Value{kind: KindNumber, str: literal} }

func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: append([]Field(nil), fields...)}
}

func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// ObjectFromStringMap converts an ordered string map into an object Value.
func ObjectFromStringMap(m StringMap) Value {
	fields := make([]Field, 0, m.Len())
	m.Each(func(k, v string) {
		fields = append(fields, Field{Key: k, Value: String(v)})
	})
	return Value{kind: KindObject, fields: fields}
}

// FromGJSON builds a Value from a parsed gjson result. Duplicate object keys
// keep the position of the first occurrence and the value of the last.
func FromGJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(strings.TrimSpace(r.Raw))
	case gjson.String:
		return String(r.Str)
	}

	if r.IsArray() {
		items := []Value{}
		for _, item := range r.Array() {
			items = append(items, FromGJSON(item))
		}
		return Value{kind: KindArray, items: items}
	}

	if r.IsObject() {
		v := Value{kind: KindObject, fields: []Field{}}
		index := make(map[string]int)
		r.ForEach(func(key, val gjson.Result) bool {
			if i, ok := index[key.Str]; ok {
				v.fields[i].Value = FromGJSON(val)
				return true
			}
			index[key.Str] = len(v.fields)
			v.fields = append(v.fields, Field{Key: key.Str, Value: FromGJSON(val)})
			return true
		})
		return v
	}

	return Null()
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) IsArray() bool { return v.kind == KindArray }

// Str returns the string payload, or "" for non-string kinds.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// Literal returns the number literal, or "" for non-number kinds.
func (v Value) Literal() string {
	if v.kind == KindNumber {
		return v.str
	}
	return ""
}

func (v Value) BoolValue() bool { return v.kind == KindBool && v.b }

func (v Value) Fields() []Field { return v.fields }

func (v Value) Items() []Value { return v.items }

// Get returns the object member named key.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// IsEmpty mirrors truthiness of the cell content: null, "", 0, false and
// empty containers are all empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindNumber:
		return isZeroLiteral(v.str)
	case KindBool:
		return !v.b
	case KindObject:
		return len(v.fields) == 0
	case KindArray:
		return len(v.items) == 0
	}
	return true
}

func isZeroLiteral(s string) bool {
	s = strings.TrimLeft(s, "-")
	s = strings.ToLower(s)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "0.") == ""
}

// Text is the plain-text rendering used for header values, form fields and
// body substring checks. Structured values render as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return v.CompactJSON()
}

// HasPlaceholder reports whether any string in the tree contains both '<' and '>'.
func (v Value) HasPlaceholder() bool {
	switch v.kind {
	case KindString:
		return strings.Contains(v.str, "<") && strings.Contains(v.str, ">")
	case KindObject:
		for _, f := range v.fields {
			if f.Value.HasPlaceholder() {
				return true
			}
		}
	case KindArray:
		for _, item := range v.items {
			if item.HasPlaceholder() {
				return true
			}
		}
	}
	return false
}

// CompactJSON renders the value as single-line JSON without HTML escaping.
func (v Value) CompactJSON() string {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.String()
}

// IndentJSON renders the value as indented JSON without HTML escaping.
func (v Value) IndentJSON(indent string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(v.CompactJSON()), "", indent); err != nil {
		return v.CompactJSON()
	}
	return out.String()
}

func (v Value) writeJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		buf.WriteString(QuoteJSON(v.str))
	case KindNumber:
		buf.WriteString(v.str)
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(QuoteJSON(f.Key))
			buf.WriteByte(':')
			f.Value.writeJSON(buf)
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.writeJSON(buf)
		}
		buf.WriteByte(']')
	}
}

// QuoteJSON encodes s as a JSON string literal without HTML escaping.
func QuoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.CompactJSON()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON value")
	}
	*v = FromGJSON(gjson.ParseBytes(data))
	return nil
}

// JSONSchema describes Value as an unconstrained JSON value.
func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Any JSON value; object member order is preserved",
	}
}
