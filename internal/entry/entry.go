// Package entry provides the directory entry value type: a DN plus an
// attribute multimap, with deep-copy semantics so that callers of the tree
// store can never mutate stored state through a returned value.
package entry

import "strings"

// Entry is a directory record: a DN plus a multimap of attribute type to
// its (possibly multi-valued) values. Values are stored as raw bytes so
// that non-printable attribute values (password hashes, photos) survive a
// dump/load round trip unchanged.
type Entry struct {
	DN         string
	Attributes map[string][][]byte
}

// New creates an empty Entry for the given DN.
func New(dn string) *Entry {
	return &Entry{
		DN:         dn,
		Attributes: make(map[string][][]byte),
	}
}

// GetAttribute returns the values for name (case-insensitive), or nil.
func (e *Entry) GetAttribute(name string) [][]byte {
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[strings.ToLower(name)]
}

// GetAttributeStrings returns the values for name decoded as strings.
func (e *Entry) GetAttributeStrings(name string) []string {
	values := e.GetAttribute(name)
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// HasAttribute reports whether the entry carries any value for name.
func (e *Entry) HasAttribute(name string) bool {
	values, ok := e.Attributes[strings.ToLower(name)]
	return ok && len(values) > 0
}

// SetAttribute replaces all values of name.
func (e *Entry) SetAttribute(name string, values ...[]byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][][]byte)
	}
	e.Attributes[strings.ToLower(name)] = values
}

// SetAttributeStrings replaces all values of name with the given strings.
func (e *Entry) SetAttributeStrings(name string, values ...string) {
	byteValues := make([][]byte, len(values))
	for i, v := range values {
		byteValues[i] = []byte(v)
	}
	e.SetAttribute(name, byteValues...)
}

// AddAttributeValue appends a single value to name.
func (e *Entry) AddAttributeValue(name string, value []byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][][]byte)
	}
	name = strings.ToLower(name)
	e.Attributes[name] = append(e.Attributes[name], value)
}

// DeleteAttribute removes name entirely.
func (e *Entry) DeleteAttribute(name string) {
	if e.Attributes == nil {
		return
	}
	delete(e.Attributes, strings.ToLower(name))
}

// DeleteAttributeValue removes a single value from name, pruning the
// attribute entirely if no values remain.
func (e *Entry) DeleteAttributeValue(name string, value []byte) {
	if e.Attributes == nil {
		return
	}
	name = strings.ToLower(name)
	values := e.Attributes[name]
	if len(values) == 0 {
		return
	}

	kept := make([][]byte, 0, len(values))
	for _, v := range values {
		if !byteEqual(v, value) {
			kept = append(kept, v)
		}
	}

	if len(kept) == 0 {
		delete(e.Attributes, name)
	} else {
		e.Attributes[name] = kept
	}
}

func byteEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AttributeNames returns the entry's attribute type names, in no
// particular order.
func (e *Entry) AttributeNames() []string {
	if e.Attributes == nil {
		return nil
	}
	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	return names
}

// Clone returns an independent deep copy of e. Every public accessor of the
// tree store hands out the result of Clone (or an Entry built from it) so
// that mutating the returned value never affects stored state and vice
// versa.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		DN:         e.DN,
		Attributes: make(map[string][][]byte, len(e.Attributes)),
	}

	for name, values := range e.Attributes {
		copied := make([][]byte, len(values))
		for i, v := range values {
			copied[i] = append([]byte(nil), v...)
		}
		clone.Attributes[name] = copied
	}

	return clone
}
