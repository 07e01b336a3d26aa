package generator

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// branch is one "branch:" block: the DN of an existing or synthesized
// entry, and the per-template counts of subordinate entries to produce
// under it.
type branch struct {
	dn           string
	subordinates []subordinateSpec
}

type subordinateSpec struct {
	templateName string
	count        int
}

// template is one "template:" block: the RDN attribute used to build each
// generated entry's DN, its static object classes, and its attribute
// value expressions (evaluated per entry by the expression evaluator).
type template struct {
	name          string
	rdnAttr       string
	objectClasses []string
	attrs         []attrSpec
}

type attrSpec struct {
	name string
	expr string
}

// parsedTemplate is the fully parsed template file: global constants,
// branches in file order, and templates indexed by name.
type parsedTemplate struct {
	defines   map[string]string
	branches  []branch
	templates map[string]*template
	order     []string // template names in file order, for stable iteration
}

// parseTemplate reads a MakeLDIF-style template document (see SPEC_FULL
// §4.5's grammar) into a parsedTemplate. Malformed lines are reported as
// warnings, not errors — the loop keeps going so one bad line does not
// sink the whole generation run.
func parseTemplate(r io.Reader) (*parsedTemplate, []string, error) {
	pt := &parsedTemplate{
		defines:   make(map[string]string),
		templates: make(map[string]*template),
	}
	var warnings []string

	const (
		sectionNone = iota
		sectionBranch
		sectionTemplate
	)
	section := sectionNone
	var curBranch *branch
	var curTemplate *template

	flushBranch := func() {
		if curBranch != nil {
			pt.branches = append(pt.branches, *curBranch)
			curBranch = nil
		}
	}
	flushTemplate := func() {
		if curTemplate != nil {
			pt.templates[curTemplate.name] = curTemplate
			pt.order = append(pt.order, curTemplate.name)
			curTemplate = nil
		}
	}

	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), " \t")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flushBranch()
			flushTemplate()
			section = sectionNone
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "define "):
			rest := strings.TrimPrefix(trimmed, "define ")
			idx := strings.Index(rest, "=")
			if idx < 0 {
				warnings = append(warnings, malformedLine(lineNum, "define line missing '='"))
				continue
			}
			pt.defines[strings.TrimSpace(rest[:idx])] = strings.TrimSpace(rest[idx+1:])

		case strings.HasPrefix(trimmed, "branch:"):
			flushTemplate()
			flushBranch()
			section = sectionBranch
			curBranch = &branch{dn: strings.TrimSpace(strings.TrimPrefix(trimmed, "branch:"))}

		case strings.HasPrefix(trimmed, "subordinateTemplate:"):
			if section != sectionBranch || curBranch == nil {
				warnings = append(warnings, malformedLine(lineNum, "subordinateTemplate: outside a branch block"))
				continue
			}
			specs, err := parseSubordinateSpecs(strings.TrimSpace(strings.TrimPrefix(trimmed, "subordinateTemplate:")))
			if err != nil {
				warnings = append(warnings, malformedLine(lineNum, err.Error()))
				continue
			}
			curBranch.subordinates = append(curBranch.subordinates, specs...)

		case strings.HasPrefix(trimmed, "template:"):
			flushBranch()
			flushTemplate()
			section = sectionTemplate
			curTemplate = &template{name: strings.TrimSpace(strings.TrimPrefix(trimmed, "template:"))}

		case strings.HasPrefix(trimmed, "rdnAttr:"):
			if section != sectionTemplate || curTemplate == nil {
				warnings = append(warnings, malformedLine(lineNum, "rdnAttr: outside a template block"))
				continue
			}
			curTemplate.rdnAttr = strings.TrimSpace(strings.TrimPrefix(trimmed, "rdnAttr:"))

		case strings.HasPrefix(trimmed, "objectClass:"):
			if section != sectionTemplate || curTemplate == nil {
				warnings = append(warnings, malformedLine(lineNum, "objectClass: outside a template block"))
				continue
			}
			curTemplate.objectClasses = append(curTemplate.objectClasses, strings.TrimSpace(strings.TrimPrefix(trimmed, "objectClass:")))

		default:
			idx := strings.Index(trimmed, ":")
			if idx < 0 {
				warnings = append(warnings, malformedLine(lineNum, "expected '<attr>: <value-expression>'"))
				continue
			}
			if section != sectionTemplate || curTemplate == nil {
				warnings = append(warnings, malformedLine(lineNum, "attribute line outside a template block"))
				continue
			}
			name := strings.TrimSpace(trimmed[:idx])
			expr := strings.TrimSpace(trimmed[idx+1:])
			curTemplate.attrs = append(curTemplate.attrs, attrSpec{name: name, expr: expr})
		}
	}
	flushBranch()
	flushTemplate()

	if err := sc.Err(); err != nil {
		return nil, warnings, errors.Wrap(err, "generator: read template")
	}
	return pt, warnings, nil
}

func malformedLine(lineNum int, msg string) string {
	return "line " + strconv.Itoa(lineNum) + ": " + msg
}

// parseSubordinateSpecs parses "person:1000,group:5" into individual
// template/count pairs.
func parseSubordinateSpecs(s string) ([]subordinateSpec, error) {
	var out []subordinateSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndex(part, ":")
		if idx < 0 {
			return nil, errors.Errorf("malformed subordinateTemplate entry %q", part)
		}
		name := strings.TrimSpace(part[:idx])
		count, err := strconv.Atoi(strings.TrimSpace(part[idx+1:]))
		if err != nil {
			return nil, errors.Wrapf(err, "malformed subordinateTemplate count in %q", part)
		}
		out = append(out, subordinateSpec{templateName: name, count: count})
	}
	return out, nil
}
