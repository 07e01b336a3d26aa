package store

import (
	"fmt"

	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/pkg/errors"
)

// Sentinel errors for the result codes spec.md §7 names. The facade wraps
// these into whatever the surrounding protocol layer needs; the store
// itself only ever returns one of these (or a *NotFoundError, which also
// satisfies errors.Is(err, ErrNotFound)).
var (
	ErrNotFound           = errors.New("store: no such entry")
	ErrAlreadyExists      = errors.New("store: entry already exists")
	ErrNotAllowedOnNonLeaf = errors.New("store: entry has children")
)

// NotFoundError is the tagged result a caller gets back for any operation
// that fails because a DN (or a required ancestor) is absent. Matched is
// the deepest existing ancestor of the DN that was looked up, the "matched
// DN" diagnostic the LDAP protocol surfaces on NO_SUCH_OBJECT. It is kept
// as a typed field rather than folded into the error string, per the
// design note to prefer a tagged result over nesting diagnostic data in an
// exception payload.
type NotFoundError struct {
	DN      dn.DN
	Matched dn.DN
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: no such entry %q (matched %q)", e.DN, e.Matched)
}

// Unwrap lets callers use errors.Is(err, ErrNotFound) without caring
// whether they got the sentinel or the tagged variant.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
