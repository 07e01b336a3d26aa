package backend

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oba-ldap/ldifstore/internal/entry"
)

// Operational attribute names per RFC 4512/4530.
const (
	AttrCreateTimestamp   = "createTimestamp"
	AttrModifyTimestamp   = "modifyTimestamp"
	AttrCreatorsName      = "creatorsName"
	AttrModifiersName     = "modifiersName"
	AttrEntryDN           = "entryDN"
	AttrEntryUUID         = "entryUUID"
	AttrHasSubordinates   = "hasSubordinates"
	AttrNumSubordinates   = "numSubordinates"
)

// OperationType selects which operational attributes SetOperationalAttrs
// maintains.
type OperationType string

const (
	OpAdd    OperationType = "add"
	OpModify OperationType = "modify"
)

// SetOperationalAttrs stamps e with the operational attributes an add or
// modify maintains. Add sets createTimestamp/creatorsName/entryUUID and
// falls through to also set the modify-side attributes; modify only
// touches the latter. entryDN is set unconditionally.
func SetOperationalAttrs(e *entry.Entry, op OperationType, bindDN string) {
	if e == nil {
		return
	}

	now := time.Now().UTC()

	switch op {
	case OpAdd:
		e.SetAttributeStrings(AttrCreateTimestamp, FormatTimestamp(now))
		e.SetAttributeStrings(AttrCreatorsName, bindDN)
		e.SetAttributeStrings(AttrEntryUUID, uuid.NewString())
		fallthrough
	case OpModify:
		e.SetAttributeStrings(AttrModifyTimestamp, FormatTimestamp(now))
		e.SetAttributeStrings(AttrModifiersName, bindDN)
	}

	e.SetAttributeStrings(AttrEntryDN, e.DN)
}

// SetSubordinateAttrs stamps e with hasSubordinates/numSubordinates. Add
// stamps a new entry with FALSE/0; GetEntry and Search overwrite both
// values on every read with counts computed live from the store.
func SetSubordinateAttrs(e *entry.Entry, hasSubordinates bool, numSubordinates uint64) {
	if e == nil {
		return
	}
	if hasSubordinates {
		e.SetAttributeStrings(AttrHasSubordinates, "TRUE")
	} else {
		e.SetAttributeStrings(AttrHasSubordinates, "FALSE")
	}
	e.SetAttributeStrings(AttrNumSubordinates, strconv.FormatUint(numSubordinates, 10))
}

// FormatTimestamp renders t as an LDAP GeneralizedTime value
// (YYYYMMDDHHmmssZ).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("20060102150405Z")
}

// ParseTimestamp parses an LDAP GeneralizedTime value, returning the zero
// time if it is malformed.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse("20060102150405Z", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
