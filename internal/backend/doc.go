// Package backend is the LDAP-shaped facade over the in-memory tree store:
// it is the only component that takes the directory lock, and it is the
// only component that touches the dump file on disk.
//
// # Overview
//
// Backend wraps internal/store with the operations an LDAP-style server
// expects (add, delete, modify, modify-DN, search, import, export), plus
// the bookkeeping the store itself does not do: operational attribute
// maintenance, the atomic rewrite of the dump file after every mutation,
// and structured logging of what happened.
//
// # Creating a Backend
//
//	cfg := config.Default()
//	cfg.Storage.BaseDN = "dc=example,dc=com"
//	cfg.Storage.LDIFFile = "/var/lib/ldifstore/example.ldif"
//
//	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
//	b, err := backend.Open(cfg, log)
//	if err != nil {
//	    log.Error("cannot open backend", "error", err.Error())
//	    return
//	}
//	defer b.Close()
//
// # Entry Operations
//
//	e := entry.New("uid=alice,ou=people,dc=example,dc=com")
//	e.SetAttributeStrings("objectClass", "inetOrgPerson", "person", "top")
//	e.SetAttributeStrings("cn", "Alice Smith")
//
//	if err := b.Add(e, "cn=admin,dc=example,dc=com"); err != nil {
//	    // handle error
//	}
//
// # Modifications
//
//	mods := []backend.Modification{
//	    {Type: backend.ModReplace, Attribute: "mail", Values: [][]byte{[]byte("alice@example.com")}},
//	    {Type: backend.ModDelete, Attribute: "description"},
//	}
//	if err := b.Modify(dn.Parse("uid=alice,ou=people,dc=example,dc=com"), mods, "cn=admin,dc=example,dc=com"); err != nil {
//	    // handle error
//	}
package backend
