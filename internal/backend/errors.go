package backend

import "github.com/pkg/errors"

// ErrUnwillingToPerform is returned by operations this backend will never
// support (backup/restore) and by every operation after Close. A delete of
// a non-leaf entry without the subtree-delete control returns
// store.ErrNotAllowedOnNonLeaf instead.
var ErrUnwillingToPerform = errors.New("backend: unwilling to perform")

// ErrMultiValuedBaseDN mirrors config.ErrMultiValuedBaseDN at the backend
// boundary. Open refuses to start against a config with more than one
// suffix configured, but it reports that through config.Validate, so the
// error it returns is config.ErrMultiValuedBaseDN, not this value.
var ErrMultiValuedBaseDN = errors.New("backend: base-dn must be single-valued")
