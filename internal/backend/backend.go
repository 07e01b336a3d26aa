package backend

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/oba-ldap/ldifstore/internal/atomicfile"
	"github.com/oba-ldap/ldifstore/internal/config"
	"github.com/oba-ldap/ldifstore/internal/dn"
	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/oba-ldap/ldifstore/internal/filter"
	"github.com/oba-ldap/ldifstore/internal/ldif"
	"github.com/oba-ldap/ldifstore/internal/logging"
	"github.com/oba-ldap/ldifstore/internal/store"
	"github.com/pkg/errors"
)

// Backend is the LDAP-shaped facade over the in-memory tree store: it owns
// the single reader-writer lock spec.md §5 requires, translates store
// errors into the facade's error vocabulary, and rewrites the dump file
// via internal/atomicfile after every mutation.
type Backend struct {
	mu     sync.RWMutex
	closed bool

	store      *store.Store
	path       string
	wrapColumn int
	fairness   bool
	logger     logging.Logger

	lastRewriteDuration time.Duration
	lastRewriteErr      error
}

// Stats reports operational visibility into the backend, mirroring the
// teacher's Stats()/EngineStats pattern.
type Stats struct {
	Entries             int
	Fairness            bool
	LastRewriteDuration time.Duration
	LastRewriteErr      error
}

// Open loads the suffix's dump file (if present) and returns a ready
// Backend. At startup the file is the authoritative source and is not
// rewritten, matching spec.md §4.3.
func Open(cfg *config.Config, logger logging.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	suffix := dn.Parse(cfg.Storage.BaseDN)
	b := &Backend{
		store:      store.New(suffix),
		path:       cfg.Storage.LDIFFile,
		wrapColumn: cfg.Storage.WrapColumn,
		fairness:   cfg.Storage.Fairness,
		logger:     logger,
	}

	if !atomicfile.Exists(b.path) {
		logger.Info("dump file absent, starting with an empty tree", "path", b.path)
		return b, nil
	}

	data, err := atomicfile.Read(b.path)
	if err != nil {
		return nil, errors.Wrap(err, "backend: open")
	}

	result, parseErrs, err := b.loadDump(data)
	if err != nil {
		return nil, errors.Wrap(err, "backend: load dump at startup")
	}
	for _, pe := range parseErrs {
		logger.Warn("skipped unparsable record at startup", "error", pe.Error())
	}
	logger.Info("loaded dump file", "path", b.path, "read", result.Read, "rejected", result.Rejected)

	return b, nil
}

// loadDump feeds data through the ldif reader into the store, skipping
// recoverable parse errors and collecting them for the caller to log.
func (b *Backend) loadDump(data []byte) (store.ImportResult, []*ldif.ParseError, error) {
	reader := ldif.NewReader(bytes.NewReader(data))
	var parseErrs []*ldif.ParseError

	next := func() (*entry.Entry, error) {
		for {
			e, err := reader.Next()
			if pe, ok := err.(*ldif.ParseError); ok {
				parseErrs = append(parseErrs, pe)
				continue
			}
			return e, err
		}
	}

	warn := func(d dn.DN, reason store.RejectReason) {
		b.logger.Warn("rejected record on load", "dn", d.String(), "reason", reason.String())
	}

	result, err := b.store.ImportStream(next, warn)
	result.Ignored = len(parseErrs)
	return result, parseErrs, err
}

// Add inserts e, stamping the operational attributes an add maintains.
func (b *Backend) Add(e *entry.Entry, bindDN string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	added := e.Clone()
	SetOperationalAttrs(added, OpAdd, bindDN)
	SetSubordinateAttrs(added, false, 0)

	if err := b.store.Add(added); err != nil {
		return err
	}
	return b.rewriteLocked()
}

// Delete removes d. useSubtreeControl mirrors spec.md §4.4's note that the
// subtree-delete control is the only way a non-leaf DN may be deleted.
func (b *Backend) Delete(d dn.DN, useSubtreeControl bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	if err := b.store.Delete(d, useSubtreeControl); err != nil {
		return err
	}
	return b.rewriteLocked()
}

// Modify applies mods to the entry at d in order and persists the result.
func (b *Backend) Modify(d dn.DN, mods []Modification, bindDN string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	current, err := b.store.GetEntry(d)
	if err != nil {
		return err
	}

	applyModifications(current, mods)
	SetOperationalAttrs(current, OpModify, bindDN)

	if err := b.store.Replace(current); err != nil {
		return err
	}
	return b.rewriteLocked()
}

// ModifyDN renames or moves the subtree rooted at req.CurrentDN.
func (b *Backend) ModifyDN(req ModifyDNRequest, bindDN string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	old, err := b.store.GetEntry(req.CurrentDN)
	if err != nil {
		return err
	}

	newDN, newSuperiorSpecified := calculateNewDN(req)
	renamed := buildRenamedEntry(old, newDN, req.CurrentDN.RDN(), req.NewRDN, req.DeleteOldRDN)
	SetOperationalAttrs(renamed, OpModify, bindDN)

	if err := b.store.Rename(req.CurrentDN, renamed, newSuperiorSpecified); err != nil {
		return err
	}
	return b.rewriteLocked()
}

// Search walks base's scope under the read lock, decorating every match
// with its live hasSubordinates/numSubordinates before handing it to
// visit. visit must not call back into the Backend.
func (b *Backend) Search(base dn.DN, scope store.Scope, matcher filter.Matcher, visit func(*entry.Entry) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	return b.store.Search(base, scope, matcher, func(e *entry.Entry) error {
		b.decorateSubordinates(e)
		return visit(e)
	})
}

// GetEntry returns a single entry by DN, decorated the same way Search's
// results are.
func (b *Backend) GetEntry(d dn.DN) (*entry.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrUnwillingToPerform
	}

	e, err := b.store.GetEntry(d)
	if err != nil {
		return nil, err
	}
	b.decorateSubordinates(e)
	return e, nil
}

// decorateSubordinates computes hasSubordinates/numSubordinates live
// rather than maintaining them as stored state, so a parent's count never
// goes stale when a descendant several levels down changes. d is assumed
// to already exist (the caller just fetched e from the store).
func (b *Backend) decorateSubordinates(e *entry.Entry) {
	d := dn.Parse(e.DN)
	has, err := b.store.HasChildren(d)
	if err != nil {
		return
	}
	count, err := b.store.CountSubordinates(d, true)
	if err != nil {
		return
	}
	SetSubordinateAttrs(e, has, count)
}

// Import replaces the whole tree from next (see store.ImportStream) and
// rewrites the dump file on success, per spec.md §4.3 ("on successful
// completion of import invoked by mutation... the dump file is
// rewritten").
func (b *Backend) Import(next func() (*entry.Entry, error)) (store.ImportResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return store.ImportResult{}, ErrUnwillingToPerform
	}

	warn := func(d dn.DN, reason store.RejectReason) {
		b.logger.Warn("rejected record on import", "dn", d.String(), "reason", reason.String())
	}

	result, err := b.store.ImportStream(next, warn)
	if err != nil {
		return result, err
	}
	return result, b.rewriteLocked()
}

// Export streams every entry to w in dump format. It does not touch the
// dump file on disk; it is a read-side operation.
func (b *Backend) Export(w io.Writer) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrUnwillingToPerform
	}

	writer := ldif.NewWriter(w)
	writer.WrapColumn = b.wrapColumn
	return b.store.ExportStream(func(e *entry.Entry) error {
		return writer.WriteRecord(e)
	})
}

// rewriteLocked serializes the whole tree and commits it to b.path via
// atomicfile.Write. The caller must already hold the write lock.
func (b *Backend) rewriteLocked() error {
	start := time.Now()

	var buf bytes.Buffer
	writer := ldif.NewWriter(&buf)
	writer.WrapColumn = b.wrapColumn
	err := b.store.ExportStream(func(e *entry.Entry) error {
		return writer.WriteRecord(e)
	})
	if err == nil {
		err = atomicfile.Write(b.path, buf.Bytes(), 0644)
	}

	b.lastRewriteDuration = time.Since(start)
	b.lastRewriteErr = err
	if err != nil {
		b.logger.Error("dump file rewrite failed", "path", b.path, "error", err.Error())
		return errors.Wrap(err, "backend: rewrite dump file")
	}
	return nil
}

// Stats reports the entry count and the outcome of the last dump rewrite.
func (b *Backend) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Entries:             b.store.Count(),
		Fairness:            b.fairness,
		LastRewriteDuration: b.lastRewriteDuration,
		LastRewriteErr:      b.lastRewriteErr,
	}
}

// SupportsBackup reports whether this backend implements CreateBackup. It
// is always false; see DESIGN.md's note on the backup/restore rejection
// surface.
func (b *Backend) SupportsBackup() bool { return false }

// SupportsRestore reports whether this backend implements RestoreBackup.
// Always false.
func (b *Backend) SupportsRestore() bool { return false }

// CreateBackup always refuses: this backend has no backup mechanism
// beyond the dump file itself, which callers can copy directly.
func (b *Backend) CreateBackup() error { return ErrUnwillingToPerform }

// RestoreBackup always refuses, for the same reason as CreateBackup.
func (b *Backend) RestoreBackup() error { return ErrUnwillingToPerform }

// Close takes the write lock, marks the backend closed, and releases it.
// No further operations are accepted; callers already holding a read or
// write lock complete normally.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
