// Package store implements the in-memory directory tree: two indexes
// (entries by DN, immediate children by parent DN) and every structural
// invariant and mutation algorithm the backend facade delegates to. It
// does no I/O and takes no lock of its own — the facade (internal/backend)
// owns the reader-writer lock and calls these methods only while holding
// the appropriate side of it.
package store

import (
	"io"

	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/oba-ldap/ldifstore/internal/filter"
)

// Store is the tree: entries keyed by canonical DN string, children keyed
// by parent DN string mapping to the set of immediate child DN strings.
// Every public method assumes the caller provides exclusivity (no
// synchronization happens here); see internal/backend for the RWMutex that
// wraps it.
type Store struct {
	suffix   dn.DN
	entries  map[string]*entry.Entry
	children map[string]map[string]struct{}
}

// New creates an empty store rooted at suffix. The suffix itself is not
// inserted; callers bootstrap it with Add.
func New(suffix dn.DN) *Store {
	return &Store{
		suffix:   suffix,
		entries:  make(map[string]*entry.Entry),
		children: make(map[string]map[string]struct{}),
	}
}

// Suffix returns the store's configured base DN.
func (s *Store) Suffix() dn.DN {
	return s.suffix
}

// Count returns the number of entries currently held.
func (s *Store) Count() int {
	return len(s.entries)
}

// GetEntry returns a deep copy of the entry at d, or a *NotFoundError.
func (s *Store) GetEntry(d dn.DN) (*entry.Entry, error) {
	e, ok := s.entries[d.String()]
	if !ok {
		return nil, &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}
	return e.Clone(), nil
}

// Exists reports whether d is present.
func (s *Store) Exists(d dn.DN) bool {
	_, ok := s.entries[d.String()]
	return ok
}

// HasChildren reports whether d has at least one immediate child. The
// second return distinguishes "no such entry" from "entry exists, no
// children" (spec's three-state TRUE/FALSE/NO_SUCH_ENTRY result).
func (s *Store) HasChildren(d dn.DN) (bool, error) {
	if !s.Exists(d) {
		return false, &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}
	set := s.children[d.String()]
	return len(set) > 0, nil
}

// CountSubordinates returns len(children[d]) when subtree is false, or the
// total descendant count by depth-first accumulation when subtree is
// true.
func (s *Store) CountSubordinates(d dn.DN, subtree bool) (uint64, error) {
	if !s.Exists(d) {
		return 0, &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}

	key := d.String()
	if !subtree {
		return uint64(len(s.children[key])), nil
	}

	var count uint64
	var walk func(string)
	walk = func(k string) {
		for child := range s.children[k] {
			count++
			walk(child)
		}
	}
	walk(key)
	return count, nil
}

// deepestAncestor walks d's ancestor chain and returns the deepest one
// present in entries, or the root if none is. It is the matched-DN
// diagnostic attached to every NotFoundError.
func (s *Store) deepestAncestor(d dn.DN) dn.DN {
	p := d.Parent()
	for {
		if s.Exists(p) {
			return p
		}
		if p.IsRoot() {
			return dn.Root
		}
		p = p.Parent()
	}
}

// Add inserts e. If e's DN is the suffix it is inserted unconditionally
// (bootstrapping the tree); otherwise parent(e.DN) must already exist.
func (s *Store) Add(e *entry.Entry) error {
	d := dn.Parse(e.DN)
	key := d.String()

	if _, exists := s.entries[key]; exists {
		return ErrAlreadyExists
	}

	if d.Equal(s.suffix) {
		s.entries[key] = e.Clone()
		return nil
	}

	parent := d.Parent()
	if !s.Exists(parent) {
		return &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}

	s.entries[key] = e.Clone()
	s.linkChild(parent.String(), key)
	return nil
}

// Delete removes d. A non-leaf DN fails with ErrNotAllowedOnNonLeaf unless
// allowSubtree is set, in which case the whole subtree is removed
// depth-first.
func (s *Store) Delete(d dn.DN, allowSubtree bool) error {
	key := d.String()
	if !s.Exists(d) {
		return &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}

	if len(s.children[key]) > 0 {
		if !allowSubtree {
			return ErrNotAllowedOnNonLeaf
		}
		s.deleteSubtree(key)
	} else {
		delete(s.entries, key)
		delete(s.children, key)
	}

	if !d.Equal(s.suffix) {
		s.unlinkChild(d.Parent().String(), key, true)
	}
	return nil
}

// deleteSubtree removes rootKey and every descendant, depth-first.
func (s *Store) deleteSubtree(rootKey string) {
	for child := range s.children[rootKey] {
		s.deleteSubtree(child)
	}
	delete(s.entries, rootKey)
	delete(s.children, rootKey)
}

// Replace swaps the stored entry at newEntry.DN for a deep copy of it.
// newEntry's DN must already exist; renaming is Rename's job, not this
// one's.
func (s *Store) Replace(newEntry *entry.Entry) error {
	d := dn.Parse(newEntry.DN)
	key := d.String()
	if _, ok := s.entries[key]; !ok {
		return &NotFoundError{DN: d, Matched: s.deepestAncestor(d)}
	}
	s.entries[key] = newEntry.Clone()
	return nil
}

// Rename moves currentDN to newEntry.DN, detaching and reattaching its
// whole subtree. newSuperiorSpecified distinguishes a same-level RDN-only
// rename from a move to a new parent; it governs whether the old parent's
// child set is pruned when emptied by this rename (see DESIGN.md's Open
// Question resolution — this asymmetry is reproduced verbatim from the
// source, not normalized).
func (s *Store) Rename(currentDN dn.DN, newEntry *entry.Entry, newSuperiorSpecified bool) error {
	currentKey := currentDN.String()
	if !s.Exists(currentDN) {
		return &NotFoundError{DN: currentDN, Matched: s.deepestAncestor(currentDN)}
	}

	newDN := dn.Parse(newEntry.DN)
	newKey := newDN.String()
	if s.Exists(newDN) {
		return ErrAlreadyExists
	}

	newParent := newDN.Parent()
	if !newParent.IsRoot() && !s.Exists(newParent) {
		return &NotFoundError{DN: newDN, Matched: s.deepestAncestor(newDN)}
	}

	oldParent := currentDN.Parent()

	keys := s.collectSubtree(currentKey)
	mapping := make(map[string]string, len(keys))
	for _, oldKey := range keys {
		mapping[oldKey] = dn.RebaseUnder(dn.Parse(oldKey), currentDN, newDN).String()
	}

	newEntries := make(map[string]*entry.Entry, len(keys))
	newChildren := make(map[string]map[string]struct{}, len(keys))
	for _, oldKey := range keys {
		rekeyed := mapping[oldKey]

		var clone *entry.Entry
		if oldKey == currentKey {
			clone = newEntry.Clone()
		} else {
			clone = s.entries[oldKey].Clone()
		}
		clone.DN = rekeyed
		newEntries[rekeyed] = clone

		if set, ok := s.children[oldKey]; ok {
			rekeyedSet := make(map[string]struct{}, len(set))
			for c := range set {
				rekeyedSet[mapping[c]] = struct{}{}
			}
			newChildren[rekeyed] = rekeyedSet
		}
	}

	for _, oldKey := range keys {
		delete(s.entries, oldKey)
		delete(s.children, oldKey)
	}
	for k, v := range newEntries {
		s.entries[k] = v
	}
	for k, v := range newChildren {
		s.children[k] = v
	}

	s.unlinkChild(oldParent.String(), currentKey, newSuperiorSpecified)
	s.linkChild(newParent.String(), newKey)

	return nil
}

// collectSubtree returns rootKey and every descendant key, parent before
// child (depth-first pre-order), matching the (I6) ordering the dump
// writer relies on.
func (s *Store) collectSubtree(rootKey string) []string {
	var keys []string
	var walk func(string)
	walk = func(k string) {
		keys = append(keys, k)
		for child := range s.children[k] {
			walk(child)
		}
	}
	walk(rootKey)
	return keys
}

// linkChild adds childKey to parentKey's child set, creating the set if
// absent. Every mutation that adds a child goes through this helper so
// the entries/children cross-reference is never updated from one side
// only.
func (s *Store) linkChild(parentKey, childKey string) {
	set, ok := s.children[parentKey]
	if !ok {
		set = make(map[string]struct{})
		s.children[parentKey] = set
	}
	set[childKey] = struct{}{}
}

// unlinkChild removes childKey from parentKey's child set. When the set
// becomes empty, it is only pruned (the map key deleted) if prune is true;
// otherwise the empty set is left in place. Delete always prunes; Rename
// prunes only when the move specifies a new superior.
func (s *Store) unlinkChild(parentKey, childKey string, prune bool) {
	set, ok := s.children[parentKey]
	if !ok {
		return
	}
	delete(set, childKey)
	if len(set) == 0 && prune {
		delete(s.children, parentKey)
	}
}

// Search walks entries in base's scope, yielding a deep copy of every
// entry the scope and matcher both accept. visit's error, if any, stops
// the walk and is returned to the caller.
func (s *Store) Search(base dn.DN, scope Scope, matcher filter.Matcher, visit func(*entry.Entry) error) error {
	if !s.Exists(base) {
		return &NotFoundError{DN: base, Matched: s.deepestAncestor(base)}
	}

	if scope == BaseObject {
		e := s.entries[base.String()]
		if matcher == nil || matcher.Matches(e) {
			return visit(e.Clone())
		}
		return nil
	}

	for key, e := range s.entries {
		d := dn.Parse(key)
		if !inScope(base, d, scope) {
			continue
		}
		if matcher != nil && !matcher.Matches(e) {
			continue
		}
		if err := visit(e.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func inScope(base, candidate dn.DN, scope Scope) bool {
	switch scope {
	case SingleLevel:
		return candidate.Parent().Equal(base)
	case WholeSubtree:
		return base.IsEqualOrAncestorOf(candidate)
	case Subordinates:
		return base.IsAncestorOf(candidate)
	default:
		return false
	}
}

// ExportStream writes every entry to visit in an order that respects
// (I6): parents before children. Insertion-order traversal alone is not
// guaranteed here (Go map iteration order is random), so export walks the
// tree from the suffix instead.
func (s *Store) ExportStream(visit func(*entry.Entry) error) error {
	if !s.Exists(s.suffix) {
		return nil
	}
	keys := s.collectSubtree(s.suffix.String())
	for _, key := range keys {
		if err := visit(s.entries[key].Clone()); err != nil {
			return err
		}
	}
	return nil
}

// ImportResult reports the outcome of a bulk load: read is every record
// the source produced, rejected is every record this store refused,
// ignored is every record skipped by the codec itself before reaching the
// store (malformed lines).
type ImportResult struct {
	Read     int
	Rejected int
	Ignored  int
}

// RejectReason explains why ImportStream refused a record, for the
// caller's warning log.
type RejectReason int

const (
	RejectDuplicate RejectReason = iota
	RejectOutOfScope
	RejectMissingParent
)

func (r RejectReason) String() string {
	switch r {
	case RejectDuplicate:
		return "duplicate entry"
	case RejectOutOfScope:
		return "out of scope"
	case RejectMissingParent:
		return "missing parent"
	default:
		return "unknown"
	}
}

// ImportStream clears the store and loads entries from next, which should
// return (entry, nil) per record, (nil, io.EOF) at end of stream, or any
// other error to abort the whole import (leaving the store cleared, per
// spec.md §4.3's non-recoverable-error behavior). warn is invoked once per
// rejected record.
func (s *Store) ImportStream(next func() (*entry.Entry, error), warn func(d dn.DN, reason RejectReason)) (ImportResult, error) {
	s.entries = make(map[string]*entry.Entry)
	s.children = make(map[string]map[string]struct{})

	var result ImportResult
	for {
		e, err := next()
		if err != nil {
			if err == io.EOF {
				return result, nil
			}
			return result, err
		}
		result.Read++

		d := dn.Parse(e.DN)
		key := d.String()

		if _, dup := s.entries[key]; dup {
			result.Rejected++
			warn(d, RejectDuplicate)
			continue
		}

		if !d.Equal(s.suffix) && !s.suffix.IsAncestorOf(d) {
			result.Rejected++
			warn(d, RejectOutOfScope)
			continue
		}

		if d.Equal(s.suffix) {
			s.entries[key] = e.Clone()
			continue
		}

		parentKey := d.Parent().String()
		if _, ok := s.entries[parentKey]; !ok {
			result.Rejected++
			warn(d, RejectMissingParent)
			continue
		}

		s.entries[key] = e.Clone()
		s.linkChild(parentKey, key)
	}
}
