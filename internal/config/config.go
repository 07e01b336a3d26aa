package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration. Server and Logging are
// kept in the teacher's shape even though this core does not itself open
// a network listener, so that a surrounding server embedding this engine
// can share one config file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LogConfig     `yaml:"logging"`
}

// ServerConfig holds the listener settings of the surrounding server.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	TLSAddress   string        `yaml:"tlsAddress"`
	TLSCert      string        `yaml:"tlsCert"`
	TLSKey       string        `yaml:"tlsKey"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// StorageConfig holds the recognised options of spec.md §6.
type StorageConfig struct {
	// BaseDN is the single suffix this engine serves. The YAML document
	// may write base-dn as either a scalar or a sequence; a sequence
	// with more than one entry sets multiValuedBaseDN so that Validate
	// can reject it, matching the config-acceptable check.
	BaseDN string `yaml:"base-dn"`
	// LDIFFile is the path to the backing dump file. Changing it at
	// runtime requires admin action; live reconfiguration is refused
	// (see Config.IsReconfigurationAllowed).
	LDIFFile string `yaml:"ldif-file"`
	// IsPrivateBackend is passed through to the surrounding server on
	// base-DN registration; it affects external visibility, not this
	// engine's behavior.
	IsPrivateBackend bool `yaml:"is-private-backend"`
	// Fairness configures the store's reader-writer lock. Go's
	// sync.RWMutex has no fairness knob, so this is accepted and
	// reported via Backend.Stats() but has no scheduling effect.
	Fairness bool `yaml:"fairness"`
	// WrapColumn is the dump writer's line-wrap column; 0 disables
	// wrapping.
	WrapColumn int `yaml:"wrap-column"`

	multiValuedBaseDN bool
}

// storageConfigAlias has the same exported fields as StorageConfig but no
// UnmarshalYAML method, so decoding into it does not recurse.
type storageConfigAlias struct {
	BaseDN           yaml.Node `yaml:"base-dn"`
	LDIFFile         string    `yaml:"ldif-file"`
	IsPrivateBackend bool      `yaml:"is-private-backend"`
	Fairness         bool      `yaml:"fairness"`
	WrapColumn       int       `yaml:"wrap-column"`
}

// UnmarshalYAML decodes base-dn leniently: a bare scalar is the common
// case, but this format (like the LDAP entries it describes) allows any
// attribute to be given as a sequence of values. A base-dn sequence with
// more than one entry is accepted here and flagged for Validate to
// reject, so the caller gets ErrMultiValuedBaseDN rather than an opaque
// YAML decode error.
func (s *StorageConfig) UnmarshalYAML(node *yaml.Node) error {
	var aux storageConfigAlias
	if err := node.Decode(&aux); err != nil {
		return err
	}

	s.LDIFFile = aux.LDIFFile
	s.IsPrivateBackend = aux.IsPrivateBackend
	s.Fairness = aux.Fairness
	s.WrapColumn = aux.WrapColumn

	switch aux.BaseDN.Kind {
	case 0:
		// base-dn was omitted; leave BaseDN at its current default.
	case yaml.SequenceNode:
		var values []string
		if err := aux.BaseDN.Decode(&values); err != nil {
			return err
		}
		if len(values) > 0 {
			s.BaseDN = values[0]
		}
		s.multiValuedBaseDN = len(values) > 1
	default:
		if err := aux.BaseDN.Decode(&s.BaseDN); err != nil {
			return err
		}
	}
	return nil
}

// LogConfig holds logging configuration, consumed by internal/logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
