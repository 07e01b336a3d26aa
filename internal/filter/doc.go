// Package filter implements RFC 4515 LDAP search filter parsing and
// evaluation against entry.Entry values.
//
// The tree store treats filter evaluation as an external collaborator: it
// accepts anything satisfying the Matcher interface (see Matcher below) and
// never inspects filter internals itself. This package is that
// collaborator's reference implementation, adapted from the teacher's
// internal/filter package with its cost-based optimizer and query planner
// dropped — there is nothing to optimize against when every search is a
// linear scan over entries (see internal/store), which is this engine's
// only access path.
//
// # Filter construction
//
//	f := filter.NewEqualityFilter("uid", []byte("alice"))
//	f := filter.NewAndFilter(
//	    filter.NewEqualityFilter("objectClass", []byte("person")),
//	    filter.NewPresentFilter("mail"),
//	)
//
// # Evaluation
//
//	e := entry.New("uid=alice,ou=users,dc=example,dc=com")
//	e.SetAttributeStrings("uid", "alice")
//	if filter.NewEqualityFilter("uid", []byte("alice")).Matches(e) {
//	    // entry matches
//	}
package filter
