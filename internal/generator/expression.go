package generator

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tokenPattern matches the three substitution forms a value expression
// can contain: {otherAttr} back-references, <fileTag>/<sequential>/<uuid>
// generator tokens, and [constantName] substitutions.
var tokenPattern = regexp.MustCompile(`\{[^{}]+\}|<[^<>]+>|\[[^\[\]]+\]`)

// evalContext carries the per-entry state a value expression needs:
// attributes already assigned earlier in the same template (for
// back-references), the shared constants table, and the generator's
// resource loader and sequence counters.
type evalContext struct {
	gen      *Generator
	branchDN string
	attrs    map[string]string
}

// evaluate expands every token in expr, returning the final string and
// any warnings produced along the way (unknown file tag, undefined
// constant, undefined back-reference).
func (c *evalContext) evaluate(expr string) (string, []string) {
	var warnings []string
	result := tokenPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		value, warn := c.resolveToken(tok)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		return value
	})
	return result, warnings
}

func (c *evalContext) resolveToken(tok string) (value string, warning string) {
	inner := tok[1 : len(tok)-1]
	switch tok[0] {
	case '{':
		if v, ok := c.attrs[strings.ToLower(inner)]; ok {
			return v, ""
		}
		return "", fmt.Sprintf("undefined back-reference {%s}", inner)
	case '[':
		if v, ok := c.gen.constants[inner]; ok {
			return v, ""
		}
		return "", fmt.Sprintf("undefined constant [%s]", inner)
	case '<':
		switch {
		case inner == "uuid":
			return uuid.NewString(), ""
		case inner == "sequential":
			return strconv.Itoa(c.gen.nextSequence(c.branchDN)), ""
		default:
			return c.gen.lookupFileTag(inner)
		}
	default:
		return "", ""
	}
}

// nextSequence returns the next per-branch sequential counter value,
// starting at 1, matching "<sequential> per-branch incrementing
// counters" (SPEC_FULL §4.5).
func (g *Generator) nextSequence(branchDN string) int {
	g.sequenceMu.Lock()
	defer g.sequenceMu.Unlock()
	g.sequences[branchDN]++
	return g.sequences[branchDN]
}

// lookupFileTag picks a pseudo-random line from resourcePath/tag.txt. A
// missing resource path or file is a warning, not a fatal error, per
// SPEC_FULL §4.5's "warnings accumulated rather than raising".
func (g *Generator) lookupFileTag(tag string) (string, string) {
	if g.opts.ResourcePath == "" {
		return "", fmt.Sprintf("unknown file tag <%s>: no resourcePath configured", tag)
	}

	lines, err := g.resourceLines(tag)
	if err != nil {
		return "", fmt.Sprintf("unknown file tag <%s>: %s", tag, err.Error())
	}
	if len(lines) == 0 {
		return "", fmt.Sprintf("unknown file tag <%s>: resource file is empty", tag)
	}

	idx := g.rng.Intn(len(lines))
	return lines[idx], ""
}

// resourceLines loads and caches the lines of resourcePath/tag.txt.
func (g *Generator) resourceLines(tag string) ([]string, error) {
	if lines, ok := g.resourceCache[tag]; ok {
		return lines, nil
	}

	path := filepath.Join(g.opts.ResourcePath, tag+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	g.resourceCache[tag] = lines
	return lines, nil
}

// newRand constructs the generator's seeded RNG. A zero seed still
// produces a deterministic sequence (rand.NewSource(0)), matching the
// CLI's --randomSeed default of 0.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
