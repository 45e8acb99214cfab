package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	goyaml "github.com/goccy/go-yaml"
)

// OrderedMap preserves declaration order for sections that are
// order-sensitive: changelog.sections, releaseTypes.items, identifiers. A
// plain Go map randomizes iteration order, which would make changelog
// section order and identifier application order nondeterministic.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set inserts or updates key, appending it to the declaration order only the
// first time it is seen.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in declaration order.
func (m *OrderedMap[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len reports the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Range calls fn for every entry in declaration order.
func (m *OrderedMap[V]) Range(fn func(key string, value V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// MarshalYAML renders the map as a goccy/go-yaml MapSlice so declaration
// order survives a round-trip through the state/config files.
func (m *OrderedMap[V]) MarshalYAML() (interface{}, error) {
	items := make(goyaml.MapSlice, 0, len(m.keys))
	for _, k := range m.keys {
		items = append(items, goyaml.MapItem{Key: k, Value: m.values[k]})
	}
	return items, nil
}

// UnmarshalYAML reconstructs declaration order from a YAML mapping node.
func (m *OrderedMap[V]) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var items goyaml.MapSlice
	if err := unmarshal(&items); err != nil {
		return err
	}
	*m = OrderedMap[V]{values: make(map[string]V, len(items))}
	for _, item := range items {
		key, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("ordered map key %v is not a string", item.Key)
		}
		value, err := coerce[V](item.Value)
		if err != nil {
			return err
		}
		m.Set(key, value)
	}
	return nil
}

// MarshalJSON preserves order by hand-writing the object braces; JSON
// config files still need identifiers/sections to read back in the same
// order they were declared.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reconstructs declaration order using a streaming decoder,
// since encoding/json's map decoding loses key order.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected JSON object")
	}

	*m = OrderedMap[V]{values: make(map[string]V)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected string key")
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return err
		}
		m.Set(key, value)
	}
	return nil
}

func coerce[V any](raw interface{}) (V, error) {
	var zero V
	if raw == nil {
		return zero, nil
	}
	if v, ok := raw.(V); ok {
		return v, nil
	}
	// Fall back to a round-trip through YAML for nested structures (e.g.
	// an identifiers entry decoded as map[string]interface{}).
	encoded, err := goyaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out V
	if err := goyaml.Unmarshal(encoded, &out); err != nil {
		return zero, err
	}
	return out, nil
}
