// SPDX-License-Identifier: MPL-2.0

package palette

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Table is a string-keyed mapping that iterates in insertion order.
// Setting an existing key replaces its value but keeps its original position.
// Read methods are safe on a nil *Table and behave like an empty table.
type Table[T any] struct {
	keys   []string
	values map[string]T
}

// NewTable creates an empty Table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{values: make(map[string]T)}
}

// Set stores value under key.
func (t *Table[T]) Set(key string, value T) {
	if t.values == nil {
		t.values = make(map[string]T)
	}
	if _, exists := t.values[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get returns the value stored under key.
func (t *Table[T]) Get(key string) (T, bool) {
	if t == nil {
		var zero T
		return zero, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Has reports whether key is present.
func (t *Table[T]) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns a copy of the keys in insertion order.
func (t *Table[T]) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// All iterates over the entries in insertion order.
func (t *Table[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of the table. Values are copied by assignment.
func (t *Table[T]) Clone() *Table[T] {
	out := NewTable[T]()
	for k, v := range t.All() {
		out.Set(k, v)
	}
	return out
}

// MarshalJSON encodes the table as a JSON object with keys in insertion order.
func (t *Table[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range t.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the table as a YAML mapping with keys in insertion order.
func (t *Table[T]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range t.All() {
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
