package filter

import "github.com/oba-ldap/ldifstore/internal/entry"

// evaluate tests whether e satisfies f. It is the package-internal
// implementation behind Filter.Matches; unlike the teacher's Evaluator it
// carries no schema reference, since attribute syntax matching is out of
// scope here and every comparison falls back to case-insensitive byte
// matching.
func evaluate(f *Filter, e *entry.Entry) bool {
	if f == nil || e == nil {
		return false
	}

	switch f.Type {
	case FilterAnd:
		return evaluateAnd(f, e)
	case FilterOr:
		return evaluateOr(f, e)
	case FilterNot:
		return evaluateNot(f, e)
	case FilterEquality:
		return evaluateEquality(f.Attribute, f.Value, e)
	case FilterSubstring:
		return evaluateSubstring(f.Substring, e)
	case FilterPresent:
		return evaluatePresent(f.Attribute, e)
	case FilterGreaterOrEqual:
		return evaluateGreaterOrEqual(f.Attribute, f.Value, e)
	case FilterLessOrEqual:
		return evaluateLessOrEqual(f.Attribute, f.Value, e)
	case FilterApproxMatch:
		return evaluateApproxMatch(f.Attribute, f.Value, e)
	default:
		return false
	}
}

// evaluateAnd matches when every child matches; an empty AND is vacuously
// true.
func evaluateAnd(f *Filter, e *entry.Entry) bool {
	if len(f.Children) == 0 {
		return true
	}
	for _, child := range f.Children {
		if !evaluate(child, e) {
			return false
		}
	}
	return true
}

// evaluateOr matches when any child matches; an empty OR matches nothing.
func evaluateOr(f *Filter, e *entry.Entry) bool {
	if len(f.Children) == 0 {
		return false
	}
	for _, child := range f.Children {
		if evaluate(child, e) {
			return true
		}
	}
	return false
}

func evaluateNot(f *Filter, e *entry.Entry) bool {
	if f.Child == nil {
		return false
	}
	return !evaluate(f.Child, e)
}

func evaluateEquality(attr string, value []byte, e *entry.Entry) bool {
	for _, v := range getAttributeValues(attr, e) {
		if matchEquality(v, value) {
			return true
		}
	}
	return false
}

func evaluateSubstring(sf *SubstringFilter, e *entry.Entry) bool {
	if sf == nil {
		return false
	}
	for _, v := range getAttributeValues(sf.Attribute, e) {
		if matchSubstring(v, sf.Initial, sf.Any, sf.Final) {
			return true
		}
	}
	return false
}

func evaluatePresent(attr string, e *entry.Entry) bool {
	return len(getAttributeValues(attr, e)) > 0
}

func evaluateGreaterOrEqual(attr string, value []byte, e *entry.Entry) bool {
	for _, v := range getAttributeValues(attr, e) {
		if matchGreaterOrEqual(v, value) {
			return true
		}
	}
	return false
}

func evaluateLessOrEqual(attr string, value []byte, e *entry.Entry) bool {
	for _, v := range getAttributeValues(attr, e) {
		if matchLessOrEqual(v, value) {
			return true
		}
	}
	return false
}

func evaluateApproxMatch(attr string, value []byte, e *entry.Entry) bool {
	for _, v := range getAttributeValues(attr, e) {
		if matchApprox(v, value) {
			return true
		}
	}
	return false
}

// getAttributeValues looks up attr case-insensitively. entry.Entry already
// normalizes keys to lowercase on write, so this is a direct lookup; the
// fallback scan guards against values built by hand with mixed-case keys.
func getAttributeValues(attr string, e *entry.Entry) [][]byte {
	if values := e.GetAttribute(attr); values != nil {
		return values
	}

	attrLower := normalizeAttributeName(attr)
	for _, name := range e.AttributeNames() {
		if normalizeAttributeName(name) == attrLower {
			return e.GetAttribute(name)
		}
	}
	return nil
}
