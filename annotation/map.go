package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMap is returned when persisted data is not a JSON object.
var ErrMalformedMap = errors.New("malformed annotation map")

// Map holds every annotation of one document, keyed by range. The order of
// each list is insertion order and is used to address individual entries.
type Map map[Key][]Annotation

// Count returns the total number of annotations across all keys.
func (m Map) Count() int {
	n := 0
	for _, list := range m {
		n += len(list)
	}
	return n
}

// Get returns the list at key, or an empty non-nil slice.
func (m Map) Get(k Key) []Annotation {
	list, ok := m[k]
	if !ok {
		return []Annotation{}
	}
	out := make([]Annotation, len(list))
	copy(out, list)
	return out
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, list := range m {
		cp := make([]Annotation, len(list))
		copy(cp, list)
		out[k] = cp
	}
	return out
}

// MarshalJSON writes the persisted form: key -> [{text, author}, ...].
func (m Map) MarshalJSON() ([]byte, error) {
	wire := make(map[string][]entry, len(m))
	for k, list := range m {
		entries := make([]entry, len(list))
		for i, a := range list {
			entries[i] = entryOf(a)
		}
		wire[string(k)] = entries
	}
	return json.Marshal(wire)
}

// Encode serializes the map as indented JSON for storage.
func Encode(m Map) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses persisted data. Only a non-object top level is an error.
// Keys that do not decode are kept with an empty list, and entries of an
// unexpected shape degrade to empty-text annotations, so damage stays local.
func Decode(data []byte) (Map, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMap, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null document", ErrMalformedMap)
	}

	m := make(Map, len(raw))
	for s, value := range raw {
		k := Key(s)
		r, err := k.Range()
		if err != nil {
			m[k] = []Annotation{}
			continue
		}
		entries := decodeEntries(value)
		list := make([]Annotation, len(entries))
		for i, e := range entries {
			list[i] = e.annotation(r)
		}
		m[k] = list
	}
	return m, nil
}

// decodeEntries reads a list of entries. A value that is not an array is
// treated as a single entry.
func decodeEntries(value json.RawMessage) []entry {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var e entry
		_ = e.UnmarshalJSON(trimmed)
		return []entry{e}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []entry{{}}
	}
	entries := make([]entry, len(items))
	for i, item := range items {
		_ = entries[i].UnmarshalJSON(item)
	}
	return entries
}
