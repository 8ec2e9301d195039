// Package revision tracks change identifiers against the commit each one
// currently points at and picks the change to report on every poll.
package revision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/elliotchance/orderedmap/v3"

	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Map is an insertion-ordered mapping from change identifier (branch, pull
// request number or change set) to revision. The zero value is ready to use.
type Map struct {
	entries *orderedmap.OrderedMap[string, string]
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{entries: orderedmap.NewOrderedMap[string, string]()}
}

// FromRefs builds a Map from refs, keeping their order. A repeated name keeps
// its first position and its last revision.
func FromRefs(refs []vcs.Ref) *Map {
	m := NewMap()
	for _, r := range refs {
		m.Set(r.Name, r.Revision)
	}
	return m
}

func (m *Map) init() {
	if m.entries == nil {
		m.entries = orderedmap.NewOrderedMap[string, string]()
	}
}

// Set records revision for id.
func (m *Map) Set(id, revision string) {
	m.init()
	m.entries.Set(id, revision)
}

// Get returns the revision recorded for id.
func (m *Map) Get(id string) (string, bool) {
	if m == nil || m.entries == nil {
		return "", false
	}
	return m.entries.Get(id)
}

// Has reports whether id is present.
func (m *Map) Has(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Delete removes id.
func (m *Map) Delete(id string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.Delete(id)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil || m.entries == nil {
		return 0
	}
	return m.entries.Len()
}

// All iterates over the entries in order.
func (m *Map) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if m == nil || m.entries == nil {
			return
		}
		for el := m.entries.Front(); el != nil; el = el.Next() {
			if !yield(el.Key, el.Value) {
				return
			}
		}
	}
}

// Keys returns the identifiers in order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.Len())
	for id := range m.All() {
		keys = append(keys, id)
	}
	return keys
}

// Clone returns an independent copy with the same order.
func (m *Map) Clone() *Map {
	out := NewMap()
	for id, rev := range m.All() {
		out.Set(id, rev)
	}
	return out
}

// Equal reports whether both maps hold the same identifier/revision pairs.
// Order is not compared.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for id, rev := range m.All() {
		if got, ok := other.Get(id); !ok || got != rev {
			return false
		}
	}
	return true
}

// ToStringMap returns the entries as a plain map.
func (m *Map) ToStringMap() map[string]string {
	out := make(map[string]string, m.Len())
	for id, rev := range m.All() {
		out[id] = rev
	}
	return out
}

// String renders the map in order, for logs.
func (m *Map) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for id, rev := range m.All() {
		if !first {
			buf.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&buf, "%s: %s", id, rev)
	}
	buf.WriteByte('}')
	return buf.String()
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for id, rev := range m.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rev)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping the document's key
// order. A JSON null leaves the map empty.
func (m *Map) UnmarshalJSON(data []byte) error {
	m.entries = orderedmap.NewOrderedMap[string, string]()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("revision map: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("revision map: expected key, got %v", tok)
		}

		var rev string
		if err := dec.Decode(&rev); err != nil {
			return fmt.Errorf("revision map: value for %q: %w", key, err)
		}
		m.entries.Set(key, rev)
	}

	_, err = dec.Token()
	return err
}
