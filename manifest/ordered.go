package manifest

import (
	"bytes"
	"encoding/json"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ordered is a string map that remembers the order in which keys were first
// added. Overwriting a key keeps its position; deleting and re-adding moves it
// to the end. The zero value is empty and ready to use.
type ordered struct {
	m *orderedmap.OrderedMap[string, string]
}

// Set inserts or overwrites key.
func (o *ordered) Set(key, value string) {
	if o.m == nil {
		o.m = orderedmap.New[string, string]()
	}
	o.m.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (o *ordered) Delete(key string) bool {
	if o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Get returns the value recorded for key.
func (o *ordered) Get(key string) (string, bool) {
	if o.m == nil {
		return "", false
	}
	return o.m.Get(key)
}

// Has reports whether key is present.
func (o *ordered) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of entries.
func (o *ordered) Len() int {
	return o.m.Len()
}

// Names returns the keys in insertion order.
func (o *ordered) Names() []string {
	keys := make([]string, 0, o.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Sorted returns the keys in byte order.
func (o *ordered) Sorted() []string {
	keys := o.Names()
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the entries.
func (o *ordered) Map() map[string]string {
	out := make(map[string]string, o.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func (o *ordered) clone() ordered {
	var cp ordered
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		cp.Set(pair.Key, pair.Value)
	}
	return cp
}

// marshal writes the entries in the order of keys. orderedmap's own
// MarshalJSON is not used: it always emits insertion order and escapes HTML
// characters such as the & in "a && b".
func (o *ordered) marshal(keys []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		v, _ := o.Get(k)
		if err := writeString(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString encodes s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Dependencies maps package names to version ranges. It renders with keys
// sorted in byte order.
type Dependencies struct {
	ordered
}

// MarshalJSON writes the entries with keys in byte order.
func (d Dependencies) MarshalJSON() ([]byte, error) {
	return d.marshal(d.Sorted())
}

// Scripts maps script names to commands. It renders in insertion order.
type Scripts struct {
	ordered
}

// MarshalJSON writes the entries in insertion order.
func (s Scripts) MarshalJSON() ([]byte, error) {
	return s.marshal(s.Names())
}
