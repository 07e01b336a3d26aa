package backend

import (
	"strings"

	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/oba-ldap/ldifstore/internal/entry"
)

// ModifyDNRequest describes a rename or move: CurrentDN becomes
// NewSuperior.Child(NewRDN) if NewSuperior is non-nil, or
// CurrentDN.Parent().Child(NewRDN) otherwise (a same-level rename).
// DeleteOldRDN controls whether the old RDN's attribute value is removed
// from the renamed entry once the new RDN attribute is in place.
type ModifyDNRequest struct {
	CurrentDN    dn.DN
	NewRDN       string
	DeleteOldRDN bool
	NewSuperior  *dn.DN
}

// calculateNewDN computes the target DN and reports whether a new
// superior was given, the flag Store.Rename needs to reproduce the
// source's old-parent pruning asymmetry.
func calculateNewDN(req ModifyDNRequest) (newDN dn.DN, newSuperiorSpecified bool) {
	if req.NewSuperior != nil {
		return req.NewSuperior.Child(req.NewRDN), true
	}
	return req.CurrentDN.Parent().Child(req.NewRDN), false
}

// buildRenamedEntry clones old, splices in the new RDN's attribute value,
// and — if requested — removes the old RDN's attribute value. The RDN
// itself may carry multiple AVAs joined by '+'; each is applied
// independently, matching how a multi-valued RDN is constructed.
func buildRenamedEntry(old *entry.Entry, newDN dn.DN, oldRDN, newRDN string, deleteOldRDN bool) *entry.Entry {
	renamed := old.Clone()
	renamed.DN = newDN.String()

	for _, ava := range strings.Split(newRDN, "+") {
		attr, value := dn.AttributeValue(ava)
		renamed.AddAttributeValue(attr, []byte(value))
	}

	if deleteOldRDN {
		for _, ava := range strings.Split(oldRDN, "+") {
			attr, value := dn.AttributeValue(ava)
			renamed.DeleteAttributeValue(attr, []byte(value))
		}
	}

	return renamed
}
