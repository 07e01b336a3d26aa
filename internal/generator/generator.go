// Package generator implements a lazy, template-driven producer of
// synthetic directory entries, modeled on the MakeLDIF tool's observable
// behavior: a template file describes a set of branches and the
// subordinate entries to generate under each, and the generator yields
// entries one at a time through HasNext/Next. No entry is built before the
// first HasNext call; that call builds every entry of the run and holds
// them in memory until Next hands them out.
package generator

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/pkg/errors"
)

// Options configures generation, all supplied at construction per
// SPEC_FULL §4.5.
type Options struct {
	// ResourcePath overrides the directory <fileTag> lookups read from.
	ResourcePath string
	// RandomSeed seeds the generator's RNG; 0 is a valid, deterministic
	// seed, matching the CLI default.
	RandomSeed int64
	// Constants overlays the template's "define" table; entries here
	// take precedence over the template's own defines.
	Constants map[string]string
	// GenerateBranchEntries controls whether each branch's own entry
	// (not just its subordinates) is emitted.
	GenerateBranchEntries bool
}

// Generator is a finite, non-restartable, lazy entry stream. It is not
// safe for concurrent use.
type Generator struct {
	opts      Options
	constants map[string]string
	rng       *rand.Rand

	parsed *parsedTemplate
	queue  []*entry.Entry

	sequenceMu    sync.Mutex
	sequences     map[string]int
	resourceCache map[string][]string

	warnings []string
	initErr  error
	started  bool
}

// New parses templatePath and returns a Generator ready for iteration.
// Parsing happens here rather than on first Next(), since the branch/
// template structure has to be known before any entry can be produced;
// this mirrors EntryGenerator's constructor-time template load while
// keeping the "first-use initialization" failure reported distinctly
// from a mid-stream generation error (see HasNext and Err).
func New(templatePath string, opts Options) (*Generator, error) {
	f, err := os.Open(templatePath)
	if err != nil {
		return nil, errors.Wrapf(err, "generator: open template %s", templatePath)
	}
	defer f.Close()

	return newFromReader(f, opts)
}

func newFromReader(r io.Reader, opts Options) (*Generator, error) {
	parsed, warnings, err := parseTemplate(r)
	if err != nil {
		return nil, errors.Wrap(err, "generator: parse template")
	}

	constants := make(map[string]string, len(parsed.defines)+len(opts.Constants))
	for k, v := range parsed.defines {
		constants[k] = v
	}
	for k, v := range opts.Constants {
		constants[k] = v
	}

	g := &Generator{
		opts:          opts,
		constants:     constants,
		rng:           newRand(opts.RandomSeed),
		parsed:        parsed,
		sequences:     make(map[string]int),
		resourceCache: make(map[string][]string),
		warnings:      warnings,
	}
	return g, nil
}

// Warnings returns every non-fatal issue accumulated so far: unknown
// file tags, undefined constants or back-references, malformed template
// lines. It grows as generation proceeds, so callers that want the full
// list should call it after the stream is exhausted.
func (g *Generator) Warnings() []string {
	return g.warnings
}

// HasNext reports whether Next would return another entry, performing
// first-use initialization (building the full branch/template entry
// queue) on its first call. A failure during that initialization is
// reported as a generator-construction error via Err, and HasNext
// returns false.
func (g *Generator) HasNext() bool {
	if !g.started {
		g.started = true
		if err := g.buildQueue(); err != nil {
			g.initErr = err
			return false
		}
	}
	return len(g.queue) > 0
}

// Err returns the error, if any, produced during first-use
// initialization.
func (g *Generator) Err() error {
	return g.initErr
}

// Next returns the next generated entry. Its result is undefined if
// HasNext last returned false.
func (g *Generator) Next() *entry.Entry {
	e := g.queue[0]
	g.queue = g.queue[1:]
	return e
}

// NextStream adapts the HasNext/Next pair to the (entry, error) pull
// contract internal/store.ImportStream and internal/ldif.Writer-based
// callers expect: io.EOF once exhausted, g.Err() wrapped if
// initialization failed.
func (g *Generator) NextStream() (*entry.Entry, error) {
	if !g.HasNext() {
		if err := g.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return g.Next(), nil
}

// buildQueue walks every branch in file order, optionally emitting the
// branch entry itself, then its subordinate entries per template in the
// counts the branch specifies.
func (g *Generator) buildQueue() error {
	for _, b := range g.parsed.branches {
		b.dn = g.resolveConstants(b.dn)

		if g.opts.GenerateBranchEntries {
			g.queue = append(g.queue, g.buildBranchEntry(b))
		}

		for _, spec := range b.subordinates {
			tmpl, ok := g.parsed.templates[spec.templateName]
			if !ok {
				g.warnings = append(g.warnings, "branch "+b.dn+" references undefined template "+spec.templateName)
				continue
			}
			for i := 0; i < spec.count; i++ {
				e, err := g.buildEntryFromTemplate(b.dn, tmpl)
				if err != nil {
					return err
				}
				g.queue = append(g.queue, e)
			}
		}
	}
	return nil
}

// resolveConstants expands [constantName] substitutions in strings that
// appear outside a template's per-entry attribute expressions, such as a
// branch's own DN.
func (g *Generator) resolveConstants(raw string) string {
	return tokenPattern.ReplaceAllStringFunc(raw, func(tok string) string {
		if tok[0] != '[' {
			return tok
		}
		inner := tok[1 : len(tok)-1]
		if v, ok := g.constants[inner]; ok {
			return v
		}
		g.warnings = append(g.warnings, fmt.Sprintf("undefined constant [%s] in %q", inner, raw))
		return tok
	})
}

// buildBranchEntry produces the minimal entry for a branch DN itself: an
// organizational-unit style entry carrying just the leading RDN's
// attribute and a generic object class pair.
func (g *Generator) buildBranchEntry(b branch) *entry.Entry {
	e := entry.New(b.dn)
	e.SetAttributeStrings("objectClass", "top", "organizationalUnit")

	rdn := b.dn
	if idx := strings.Index(rdn, ","); idx >= 0 {
		rdn = rdn[:idx]
	}
	if idx := strings.Index(rdn, "="); idx >= 0 {
		attr, value := rdn[:idx], rdn[idx+1:]
		e.SetAttributeStrings(attr, value)
	}
	return e
}

// buildEntryFromTemplate evaluates every attribute expression of tmpl in
// order (so later expressions can back-reference earlier ones), then
// derives the entry's DN from its rdnAttr's generated value.
func (g *Generator) buildEntryFromTemplate(branchDN string, tmpl *template) (*entry.Entry, error) {
	ctx := &evalContext{gen: g, branchDN: branchDN, attrs: make(map[string]string)}

	e := entry.New("")
	for _, oc := range tmpl.objectClasses {
		e.AddAttributeValue("objectClass", []byte(oc))
	}

	var rdnValue string
	for _, a := range tmpl.attrs {
		value, warns := ctx.evaluate(a.expr)
		g.warnings = append(g.warnings, warns...)

		ctx.attrs[strings.ToLower(a.name)] = value
		e.AddAttributeValue(a.name, []byte(value))

		if strings.EqualFold(a.name, tmpl.rdnAttr) {
			rdnValue = value
		}
	}

	if tmpl.rdnAttr == "" {
		return nil, errors.Errorf("generator: template %q has no rdnAttr", tmpl.name)
	}
	e.DN = tmpl.rdnAttr + "=" + rdnValue + "," + branchDN
	return e, nil
}
