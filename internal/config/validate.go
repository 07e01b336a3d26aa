package config

import "github.com/pkg/errors"

// ErrMultiValuedBaseDN is returned when more than one base DN is
// configured; this engine supports exactly one suffix.
var ErrMultiValuedBaseDN = errors.New("config: base-dn must be single-valued")

// ErrMissingBaseDN is returned when no base DN is configured.
var ErrMissingBaseDN = errors.New("config: base-dn is required")

// ErrMissingLDIFFile is returned when no dump file path is configured.
var ErrMissingLDIFFile = errors.New("config: ldif-file is required")

// Validate checks the config-acceptable invariants spec.md §6 names:
// exactly one base DN, a dump file path, and nothing else. It does not
// check filesystem state (the file need not exist yet; the backend's
// first dump rewrite after a mutation creates it).
func (c *Config) Validate() error {
	if c.Storage.multiValuedBaseDN {
		return ErrMultiValuedBaseDN
	}
	if c.Storage.BaseDN == "" {
		return ErrMissingBaseDN
	}
	if c.Storage.LDIFFile == "" {
		return ErrMissingLDIFFile
	}
	return nil
}

// IsReconfigurationAllowed reports whether changing from c to next can be
// applied live. base-dn and ldif-file changes always require admin action
// (a restart), matching LDIFBackend.isConfigurationChangeAcceptable.
func (c *Config) IsReconfigurationAllowed(next *Config) bool {
	return c.Storage.BaseDN == next.Storage.BaseDN && c.Storage.LDIFFile == next.Storage.LDIFFile
}
