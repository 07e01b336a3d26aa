package config

import "time"

// Default returns a Config with sensible defaults; LoadConfig starts from
// this and overlays whatever the YAML document sets.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":389",
			TLSAddress:   ":636",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			WrapColumn: 0,
			Fairness:   false,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
