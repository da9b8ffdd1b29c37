package model

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StringMap is an insertion-ordered string map. The zero value is an empty,
// ready-to-use map.
type StringMap struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewStringMap builds a map from alternating key/value arguments.
func NewStringMap(kv ...string) StringMap {
	var sm StringMap
	for i := 0; i+1 < len(kv); i += 2 {
		sm.Set(kv[i], kv[i+1])
	}
	return sm
}

// Set stores value under key, keeping the original position of an existing key.
func (s *StringMap) Set(key, value string) {
	if s.m == nil {
		s.m = orderedmap.New[string, string]()
	}
	s.m.Set(key, value)
}

func (s StringMap) Get(key string) (string, bool) {
	if s.m == nil {
		return "", false
	}
	return s.m.Get(key)
}

// GetFold looks a key up case-insensitively.
func (s StringMap) GetFold(key string) (string, bool) {
	if v, ok := s.Get(key); ok {
		return v, true
	}
	if s.m == nil {
		return "", false
	}
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Key, key) {
			return pair.Value, true
		}
	}
	return "", false
}

func (s StringMap) HasFold(key string) bool {
	_, ok := s.GetFold(key)
	return ok
}

func (s StringMap) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

func (s StringMap) Keys() []string {
	keys := make([]string, 0, s.Len())
	s.Each(func(k, _ string) {
		keys = append(keys, k)
	})
	return keys
}

// Each calls fn for every entry in insertion order.
func (s StringMap) Each(fn func(key, value string)) {
	if s.m == nil {
		return
	}
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

func (s StringMap) Clone() StringMap {
	var out StringMap
	s.Each(func(k, v string) {
		out.Set(k, v)
	})
	return out
}

// MarshalJSON implements json.Marshaler. Keys keep insertion order and no
// HTML escaping is applied.
func (s StringMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	s.Each(func(k, v string) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(QuoteJSON(k))
		b.WriteByte(':')
		b.WriteString(QuoteJSON(v))
	})
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringMap) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	s.m = m
	return nil
}

// JSONSchema describes StringMap as an object of string values.
func (StringMap) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
}
