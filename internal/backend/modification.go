package backend

import "github.com/oba-ldap/ldifstore/internal/entry"

// ModificationType selects how a Modification changes an attribute.
type ModificationType int

const (
	ModAdd ModificationType = iota
	ModDelete
	ModReplace
)

func (t ModificationType) String() string {
	switch t {
	case ModAdd:
		return "add"
	case ModDelete:
		return "delete"
	case ModReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Modification describes one attribute-level change in a Modify request.
// An empty Values on ModDelete deletes the whole attribute; a non-empty
// Values deletes only those specific values.
type Modification struct {
	Type      ModificationType
	Attribute string
	Values    [][]byte
}

// applyModifications applies mods to e in order, the same semantics LDAP modify
// requests require: each modification sees the result of the ones before
// it.
func applyModifications(e *entry.Entry, mods []Modification) {
	for _, m := range mods {
		switch m.Type {
		case ModAdd:
			for _, v := range m.Values {
				e.AddAttributeValue(m.Attribute, v)
			}
		case ModDelete:
			if len(m.Values) == 0 {
				e.DeleteAttribute(m.Attribute)
				continue
			}
			for _, v := range m.Values {
				e.DeleteAttributeValue(m.Attribute, v)
			}
		case ModReplace:
			if len(m.Values) == 0 {
				e.DeleteAttribute(m.Attribute)
				continue
			}
			e.SetAttribute(m.Attribute, m.Values...)
		}
	}
}
