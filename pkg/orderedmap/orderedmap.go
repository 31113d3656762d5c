// Package orderedmap provides a string-keyed map that preserves insertion order.
package orderedmap

// Map is a string→string map whose keys iterate in insertion order.
// The zero value is not usable; create one with New.
type Map struct {
	keys   []string
	values map[string]string
}

// New creates an empty Map.
func New() *Map {
	return &Map{values: make(map[string]string)}
}

// Set adds or updates a key. Updating an existing key keeps its position.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}
