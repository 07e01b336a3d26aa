package backend

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/oba-ldap/ldifstore/internal/config"
	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/oba-ldap/ldifstore/internal/filter"
	"github.com/oba-ldap/ldifstore/internal/logging"
	"github.com/oba-ldap/ldifstore/internal/store"
	"github.com/stretchr/testify/require"
)

const adminDN = "cn=admin,dc=example,dc=com"

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BaseDN = "dc=example,dc=com"
	cfg.Storage.LDIFFile = filepath.Join(t.TempDir(), "example.ldif")

	b, err := Open(cfg, logging.NewNop())
	require.NoError(t, err)

	root := entry.New("dc=example,dc=com")
	root.SetAttributeStrings("objectClass", "top", "domain")
	require.NoError(t, b.Add(root, adminDN))

	return b
}

func TestOpenWithMissingFileStartsEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BaseDN = "dc=example,dc=com"
	cfg.Storage.LDIFFile = filepath.Join(t.TempDir(), "missing.ldif")

	b, err := Open(cfg, logging.NewNop())
	require.NoError(t, err)
	require.Equal(t, 0, b.Stats().Entries)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	_, err := Open(cfg, logging.NewNop())
	require.Error(t, err)
}

func TestAddStampsOperationalAttributes(t *testing.T) {
	b := newTestBackend(t)

	e := entry.New("ou=people,dc=example,dc=com")
	e.SetAttributeStrings("objectClass", "organizationalUnit")
	require.NoError(t, b.Add(e, adminDN))

	got, err := b.GetEntry(dn.Parse("ou=people,dc=example,dc=com"))
	require.NoError(t, err)
	require.NotEmpty(t, got.GetAttributeStrings(AttrEntryUUID))
	require.Equal(t, []string{adminDN}, got.GetAttributeStrings(AttrCreatorsName))
	require.NotEmpty(t, got.GetAttributeStrings(AttrCreateTimestamp))
	require.Equal(t, []string{"FALSE"}, got.GetAttributeStrings(AttrHasSubordinates))
}

func TestAddRewritesDumpFile(t *testing.T) {
	b := newTestBackend(t)

	data, err := os.ReadFile(b.path)
	require.NoError(t, err)
	require.Contains(t, string(data), "dn: dc=example,dc=com")
}

func TestAddDuplicateFails(t *testing.T) {
	b := newTestBackend(t)
	dup := entry.New("dc=example,dc=com")
	require.ErrorIs(t, b.Add(dup, adminDN), store.ErrAlreadyExists)
}

func TestAddMissingParentFails(t *testing.T) {
	b := newTestBackend(t)
	e := entry.New("cn=orphan,ou=missing,dc=example,dc=com")
	err := b.Add(e, adminDN)
	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDecorateSubordinatesReflectsLiveChildren(t *testing.T) {
	b := newTestBackend(t)

	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))

	root, err := b.GetEntry(dn.Parse("dc=example,dc=com"))
	require.NoError(t, err)
	require.Equal(t, []string{"TRUE"}, root.GetAttributeStrings(AttrHasSubordinates))
	require.Equal(t, []string{"1"}, root.GetAttributeStrings(AttrNumSubordinates))

	alice := entry.New("uid=alice,ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(alice, adminDN))

	root, err = b.GetEntry(dn.Parse("dc=example,dc=com"))
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, root.GetAttributeStrings(AttrNumSubordinates))
}

func TestDeleteLeafSucceeds(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))

	require.NoError(t, b.Delete(dn.Parse("ou=people,dc=example,dc=com"), false))
	_, err := b.GetEntry(dn.Parse("ou=people,dc=example,dc=com"))
	require.Error(t, err)
}

func TestDeleteNonLeafRequiresSubtreeControl(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))
	alice := entry.New("uid=alice,ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(alice, adminDN))

	err := b.Delete(dn.Parse("ou=people,dc=example,dc=com"), false)
	require.ErrorIs(t, err, store.ErrNotAllowedOnNonLeaf)

	require.NoError(t, b.Delete(dn.Parse("ou=people,dc=example,dc=com"), true))
	_, err = b.GetEntry(dn.Parse("uid=alice,ou=people,dc=example,dc=com"))
	require.Error(t, err)
}

func TestModifyAppliesAndStampsModifyTimestamp(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))

	mods := []Modification{
		{Type: ModReplace, Attribute: "description", Values: [][]byte{[]byte("people branch")}},
	}
	require.NoError(t, b.Modify(dn.Parse("ou=people,dc=example,dc=com"), mods, adminDN))

	got, err := b.GetEntry(dn.Parse("ou=people,dc=example,dc=com"))
	require.NoError(t, err)
	require.Equal(t, []string{"people branch"}, got.GetAttributeStrings("description"))
	require.Equal(t, []string{adminDN}, got.GetAttributeStrings(AttrModifiersName))
}

func TestModifyDNRenamesSameLevel(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))

	req := ModifyDNRequest{
		CurrentDN:    dn.Parse("ou=people,dc=example,dc=com"),
		NewRDN:       "ou=users",
		DeleteOldRDN: true,
	}
	require.NoError(t, b.ModifyDN(req, adminDN))

	_, err := b.GetEntry(dn.Parse("ou=people,dc=example,dc=com"))
	require.Error(t, err)
	got, err := b.GetEntry(dn.Parse("ou=users,dc=example,dc=com"))
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, got.GetAttributeStrings("ou"))
}

func TestSearchDecoratesResults(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	require.NoError(t, b.Add(ou, adminDN))

	var found []string
	err := b.Search(dn.Parse("dc=example,dc=com"), store.WholeSubtree, nil, func(e *entry.Entry) error {
		found = append(found, e.DN)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestSearchWithFilter(t *testing.T) {
	b := newTestBackend(t)
	ou := entry.New("ou=people,dc=example,dc=com")
	ou.SetAttributeStrings("ou", "people")
	require.NoError(t, b.Add(ou, adminDN))

	f, err := filter.Parse("(ou=people)")
	require.NoError(t, err)

	var found []string
	err = b.Search(dn.Parse("dc=example,dc=com"), store.WholeSubtree, f, func(e *entry.Entry) error {
		found = append(found, e.DN)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ou=people,dc=example,dc=com"}, found)
}

func TestExportWritesDumpFormat(t *testing.T) {
	b := newTestBackend(t)

	var buf bytes.Buffer
	require.NoError(t, b.Export(&buf))
	require.Contains(t, buf.String(), "dn: dc=example,dc=com")
}

func TestImportReplacesWholeTree(t *testing.T) {
	b := newTestBackend(t)

	entries := []*entry.Entry{
		entry.New("dc=example,dc=com"),
		entry.New("ou=groups,dc=example,dc=com"),
	}
	i := 0
	next := func() (*entry.Entry, error) {
		if i >= len(entries) {
			return nil, io.EOF
		}
		e := entries[i]
		i++
		return e, nil
	}

	result, err := b.Import(next)
	require.NoError(t, err)
	require.Equal(t, 2, result.Read)
	require.Equal(t, 0, result.Rejected)
	require.Equal(t, 2, b.Stats().Entries)
}

func TestSupportsBackupAndRestoreAreRefused(t *testing.T) {
	b := newTestBackend(t)
	require.False(t, b.SupportsBackup())
	require.False(t, b.SupportsRestore())
	require.ErrorIs(t, b.CreateBackup(), ErrUnwillingToPerform)
	require.ErrorIs(t, b.RestoreBackup(), ErrUnwillingToPerform)
}

func TestCloseRefusesFurtherOperations(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Close())

	err := b.Add(entry.New("ou=people,dc=example,dc=com"), adminDN)
	require.ErrorIs(t, err, ErrUnwillingToPerform)
}

func TestStatsReportsLastRewrite(t *testing.T) {
	b := newTestBackend(t)
	stats := b.Stats()
	require.Equal(t, 1, stats.Entries)
	require.NoError(t, stats.LastRewriteErr)
}
