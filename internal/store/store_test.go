package store

import (
	"io"
	"testing"

	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/oba-ldap/ldifstore/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertInvariants checks I1-I4 hold at the current quiescent point.
func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	for key := range s.entries {
		d := dn.Parse(key)
		if !d.Equal(s.suffix) {
			assert.True(t, s.Exists(d.Parent()), "I1: parent of %s must exist", key)
			_, inSet := s.children[d.Parent().String()][key]
			assert.True(t, inSet, "I2: %s must be in its parent's child set", key)
		}
	}
	for parentKey, set := range s.children {
		assert.NotEmpty(t, set, "I3: child set for %s must not be empty if present", parentKey)
		for childKey := range set {
			e, ok := s.entries[childKey]
			require.True(t, ok)
			assert.Equal(t, childKey, e.DN)
			assert.Equal(t, parentKey, dn.Parse(childKey).Parent().String())
		}
	}
}

func TestScenarioEmptyToFirstAdd(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)

	require.NoError(t, s.Add(entry.New("dc=x")))
	assert.True(t, s.Exists(suffix))
	assert.Equal(t, 1, s.Count())
	assertInvariants(t, s)
}

func TestScenarioMissingParent(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))

	err := s.Add(entry.New("cn=a,ou=p,dc=x"))
	require.Error(t, err)
	nfe, ok := err.(*NotFoundError)
	require.True(t, ok)
	assert.Equal(t, dn.Parse("dc=x"), nfe.Matched)
	assertInvariants(t, s)
}

func TestScenarioNonLeafDelete(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,dc=x")))

	err := s.Delete(suffix, false)
	assert.ErrorIs(t, err, ErrNotAllowedOnNonLeaf)
	assertInvariants(t, s)

	require.NoError(t, s.Delete(suffix, true))
	assert.Equal(t, 0, s.Count())
	assertInvariants(t, s)
}

func TestScenarioSubtreeRename(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=p,dc=x")))

	newEntry := entry.New("ou=q,dc=x")
	require.NoError(t, s.Rename(dn.Parse("ou=p,dc=x"), newEntry, false))

	assert.True(t, s.Exists(suffix))
	assert.True(t, s.Exists(dn.Parse("ou=q,dc=x")))
	assert.True(t, s.Exists(dn.Parse("cn=a,ou=q,dc=x")))
	assert.False(t, s.Exists(dn.Parse("ou=p,dc=x")))
	assert.False(t, s.Exists(dn.Parse("cn=a,ou=p,dc=x")))

	_, inRootSet := s.children[suffix.String()][dn.Parse("ou=q,dc=x").String()]
	assert.True(t, inRootSet)
	_, inNewParentSet := s.children[dn.Parse("ou=q,dc=x").String()][dn.Parse("cn=a,ou=q,dc=x").String()]
	assert.True(t, inNewParentSet)
	assertInvariants(t, s)
}

func TestRenameNewSuperiorPrunesEmptyOldParent(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=src,dc=x")))
	require.NoError(t, s.Add(entry.New("ou=dst,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=src,dc=x")))

	newEntry := entry.New("cn=a,ou=dst,dc=x")
	require.NoError(t, s.Rename(dn.Parse("cn=a,ou=src,dc=x"), newEntry, true))

	_, stillPresent := s.children[dn.Parse("ou=src,dc=x").String()]
	assert.False(t, stillPresent, "old parent's now-empty child set must be pruned when a new superior is given")
}

func TestRenameSameLevelRelinksUnderSameParent(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=p,dc=x")))

	newEntry := entry.New("cn=b,ou=p,dc=x")
	require.NoError(t, s.Rename(dn.Parse("cn=a,ou=p,dc=x"), newEntry, false))

	// Same-level rename: old and new parent are identical (ou=p,dc=x), so
	// the set is never actually left empty in this path, but the renamed
	// child must be present under it either way.
	_, present := s.children[dn.Parse("ou=p,dc=x").String()][dn.Parse("cn=b,ou=p,dc=x").String()]
	assert.True(t, present)
}

func TestScenarioImportWithDuplicate(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)

	records := []*entry.Entry{
		entry.New("dc=x"),
		entry.New("cn=a,dc=x"),
		entry.New("cn=a,dc=x"),
	}
	i := 0
	next := func() (*entry.Entry, error) {
		if i >= len(records) {
			return nil, io.EOF
		}
		e := records[i]
		i++
		return e, nil
	}

	var rejections []RejectReason
	result, err := s.ImportStream(next, func(d dn.DN, reason RejectReason) {
		rejections = append(rejections, reason)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Read)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []RejectReason{RejectDuplicate}, rejections)
	assert.Equal(t, 2, s.Count())
	assertInvariants(t, s)
}

func TestImportRejectsOutOfScope(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)

	records := []*entry.Entry{entry.New("dc=x"), entry.New("dc=other")}
	i := 0
	next := func() (*entry.Entry, error) {
		if i >= len(records) {
			return nil, io.EOF
		}
		e := records[i]
		i++
		return e, nil
	}

	result, err := s.ImportStream(next, func(dn.DN, RejectReason) {})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 1, s.Count())
}

func TestImportRejectsMissingParent(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)

	records := []*entry.Entry{entry.New("dc=x"), entry.New("cn=a,ou=missing,dc=x")}
	i := 0
	next := func() (*entry.Entry, error) {
		if i >= len(records) {
			return nil, io.EOF
		}
		e := records[i]
		i++
		return e, nil
	}

	result, err := s.ImportStream(next, func(dn.DN, RejectReason) {})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
}

func TestSearchScopes(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=p,dc=x")))

	var got []string
	collect := func(e *entry.Entry) error {
		got = append(got, e.DN)
		return nil
	}

	got = nil
	require.NoError(t, s.Search(suffix, BaseObject, nil, collect))
	assert.Equal(t, []string{"dc=x"}, got)

	got = nil
	require.NoError(t, s.Search(suffix, SingleLevel, nil, collect))
	assert.Equal(t, []string{"ou=p,dc=x"}, got)

	got = nil
	require.NoError(t, s.Search(suffix, WholeSubtree, nil, collect))
	assert.ElementsMatch(t, []string{"dc=x", "ou=p,dc=x", "cn=a,ou=p,dc=x"}, got)

	got = nil
	require.NoError(t, s.Search(suffix, Subordinates, nil, collect))
	assert.ElementsMatch(t, []string{"ou=p,dc=x", "cn=a,ou=p,dc=x"}, got)
}

func TestSearchWithFilter(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))

	alice := entry.New("cn=alice,dc=x")
	alice.SetAttributeStrings("objectClass", "person")
	require.NoError(t, s.Add(alice))

	bob := entry.New("cn=bob,dc=x")
	bob.SetAttributeStrings("objectClass", "group")
	require.NoError(t, s.Add(bob))

	var got []string
	err := s.Search(suffix, WholeSubtree, filter.NewEqualityFilter("objectClass", []byte("person")), func(e *entry.Entry) error {
		got = append(got, e.DN)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cn=alice,dc=x"}, got)
}

func TestExportRespectsParentBeforeChild(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=p,dc=x")))

	var order []string
	require.NoError(t, s.ExportStream(func(e *entry.Entry) error {
		order = append(order, e.DN)
		return nil
	}))

	assert.Equal(t, []string{"dc=x", "ou=p,dc=x", "cn=a,ou=p,dc=x"}, order)
}

func TestGetEntryReturnsIndependentCopy(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	e := entry.New("dc=x")
	e.SetAttributeStrings("o", "Example")
	require.NoError(t, s.Add(e))

	got, err := s.GetEntry(suffix)
	require.NoError(t, err)
	got.SetAttributeStrings("o", "Mutated")

	got2, err := s.GetEntry(suffix)
	require.NoError(t, err)
	assert.Equal(t, []string{"Example"}, got2.GetAttributeStrings("o"))
}

func TestHasChildrenTriState(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))

	has, err := s.HasChildren(suffix)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Add(entry.New("cn=a,dc=x")))
	has, err = s.HasChildren(suffix)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.HasChildren(dn.Parse("cn=missing,dc=x"))
	assert.Error(t, err)
}

func TestCountSubordinates(t *testing.T) {
	suffix := dn.Parse("dc=x")
	s := New(suffix)
	require.NoError(t, s.Add(entry.New("dc=x")))
	require.NoError(t, s.Add(entry.New("ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=a,ou=p,dc=x")))
	require.NoError(t, s.Add(entry.New("cn=b,ou=p,dc=x")))

	n, err := s.CountSubordinates(suffix, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	n, err = s.CountSubordinates(suffix, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}
