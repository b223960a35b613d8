package scene

import (
	"bytes"
	"encoding/json"

	"cogentcore.org/core/base/ordmap"
)

// Ordered is a string-keyed map that remembers first-insertion order and
// encodes to a JSON object in that order.
type Ordered[V any] struct {
	m *ordmap.Map[string, V]
}

// NewOrdered returns an empty ordered map.
func NewOrdered[V any]() *Ordered[V] {
	return &Ordered[V]{m: ordmap.New[string, V]()}
}

// Len returns the number of entries.
func (m *Ordered[V]) Len() int {
	if m == nil {
		return 0
	}
	return m.m.Len()
}

// Has reports whether key is present.
func (m *Ordered[V]) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.m.IndexByKeyTry(key)
	return ok
}

// Get returns the value stored under key.
func (m *Ordered[V]) Get(key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	return m.m.ValueByKeyTry(key)
}

// Set stores v under key, keeping the key's original position if it exists.
func (m *Ordered[V]) Set(key string, v V) {
	m.m.Add(key, v)
}

// SetIfAbsent stores v under key only if key is not present yet.
// It reports whether v was stored.
func (m *Ordered[V]) SetIfAbsent(key string, v V) bool {
	if m.Has(key) {
		return false
	}
	m.m.Add(key, v)
	return true
}

// Keys returns the keys in insertion order.
func (m *Ordered[V]) Keys() []string {
	if m == nil {
		return nil
	}
	return m.m.Keys()
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *Ordered[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range m.m.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
