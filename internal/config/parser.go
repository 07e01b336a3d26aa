package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrFileNotFound is returned by LoadConfig when path does not exist.
var ErrFileNotFound = errors.New("config: configuration file not found")

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML document into a Config seeded with Default(),
// after substituting ${VAR} / ${VAR:-default} environment references.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse yaml")
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} with the
// environment's value (or the default, if the variable is unset).
func substituteEnvVars(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		content := string(match[2 : len(match)-1])

		if idx := strings.Index(content, ":-"); idx != -1 {
			name, fallback := content[:idx], content[idx+2:]
			if val, ok := os.LookupEnv(name); ok {
				return []byte(val)
			}
			return []byte(fallback)
		}

		return []byte(os.Getenv(content))
	})
}
