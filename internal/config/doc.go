// Package config loads and validates the YAML configuration this engine
// and its surrounding server read at startup.
//
// # Loading configuration
//
//	cfg, err := config.LoadConfig("/etc/ldifstore/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Or start from defaults and fill in the required fields:
//
//	cfg := config.Default()
//	cfg.Storage.BaseDN = "dc=example,dc=com"
//	cfg.Storage.LDIFFile = "/var/lib/ldifstore/example.ldif"
//
// # Environment substitution
//
// ${VAR} and ${VAR:-default} references in the YAML document are resolved
// against the process environment before parsing:
//
//	storage:
//	  ldif-file: "${LDIFSTORE_HOME:-/var/lib/ldifstore}/example.ldif"
//
// # Example configuration
//
//	server:
//	  address: ":389"
//	  readTimeout: 30s
//	  writeTimeout: 30s
//
//	storage:
//	  base-dn: "dc=example,dc=com"
//	  ldif-file: "/var/lib/ldifstore/example.ldif"
//	  is-private-backend: false
//	  wrap-column: 78
//
//	logging:
//	  level: "info"
//	  format: "text"
//	  output: "stdout"
package config
