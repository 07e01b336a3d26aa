// Package ldif implements the textual dump format the tree store persists
// to: blank-line-separated records, one "type: value" or "type:: base64"
// line per attribute, long lines wrapped at a configurable column with a
// single leading space marking a continuation.
package ldif

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/oba-ldap/ldifstore/internal/entry"
	"github.com/pkg/errors"
)

// ParseError reports a malformed record. Recoverable records are skipped by
// the loader (§4.3: "a recoverable parse error is logged and skipped");
// everything this package returns is recoverable except io errors from the
// underlying reader, which Reader.Next passes through unwrapped.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ldif: line %d: %s", e.Line, e.Message)
}

// Reader pulls records off an underlying stream one at a time. It is
// forward-only and does not buffer the whole file in memory, matching the
// original LDIFReader's per-record pull contract.
type Reader struct {
	sc       *bufio.Scanner
	lineNum  int
	pushback string
	hasPush  bool
	done     bool
}

// NewReader wraps r for record-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{sc: sc}
}

func (r *Reader) nextLine() (string, bool) {
	if r.hasPush {
		r.hasPush = false
		return r.pushback, true
	}
	if !r.sc.Scan() {
		return "", false
	}
	r.lineNum++
	return r.sc.Text(), true
}

func (r *Reader) pushBack(line string) {
	r.pushback = line
	r.hasPush = true
}

// Next returns the next record as an *entry.Entry. It returns io.EOF when
// the stream is exhausted. A malformed record yields a *ParseError and is
// otherwise skipped; the caller should call Next again to continue. Any
// other error is a non-recoverable failure of the underlying reader and
// aborts the stream.
func (r *Reader) Next() (*entry.Entry, error) {
	if r.done {
		return nil, io.EOF
	}

	// Skip blank lines and comment lines between records.
	var first string
	for {
		line, ok := r.nextLine()
		if !ok {
			r.done = true
			if err := r.sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		first = line
		break
	}

	lines := []string{first}
	for {
		line, ok := r.nextLine()
		if !ok {
			r.done = true
			if err := r.sc.Err(); err != nil {
				return nil, err
			}
			break
		}
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			lines[len(lines)-1] += line[1:]
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	return decodeRecord(lines, r.lineNum)
}

func decodeRecord(lines []string, lineNum int) (*entry.Entry, error) {
	if len(lines) == 0 {
		return nil, &ParseError{Line: lineNum, Message: "empty record"}
	}

	dnType, dnValue, err := splitAttrLine(lines[0])
	if err != nil {
		return nil, &ParseError{Line: lineNum, Message: err.Error()}
	}
	if !strings.EqualFold(dnType, "dn") {
		return nil, &ParseError{Line: lineNum, Message: "record does not start with dn:"}
	}

	e := entry.New(string(dnValue))
	for _, line := range lines[1:] {
		attrType, value, err := splitAttrLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Message: err.Error()}
		}
		e.AddAttributeValue(attrType, value)
	}

	return e, nil
}

// splitAttrLine decodes a single "type: value" or "type:: base64" logical
// line (continuations already joined by the caller).
func splitAttrLine(line string) (attrType string, value []byte, err error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", nil, errors.Errorf("missing ':' in line %q", line)
	}
	attrType = line[:idx]
	rest := line[idx+1:]

	if strings.HasPrefix(rest, ":") {
		encoded := strings.TrimSpace(rest[1:])
		decoded, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil {
			return "", nil, errors.Wrapf(decErr, "invalid base64 value for %q", attrType)
		}
		return attrType, decoded, nil
	}

	return attrType, []byte(strings.TrimPrefix(rest, " ")), nil
}

// Writer emits records in the dump format, wrapping long lines at
// WrapColumn (0 disables wrapping) exactly as the writer-only concern
// described for the dump codec.
type Writer struct {
	w          io.Writer
	WrapColumn int
}

// NewWriter creates a Writer with no line wrapping; set WrapColumn after
// construction to enable it.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord emits a single blank-line-terminated record for e.
func (w *Writer) WriteRecord(e *entry.Entry) error {
	if err := w.writeAttrLine("dn", []byte(e.DN)); err != nil {
		return err
	}

	names := e.AttributeNames()
	sort.Strings(names)
	for _, name := range names {
		for _, v := range e.GetAttribute(name) {
			if err := w.writeAttrLine(name, v); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w.w)
	return errors.Wrap(err, "ldif: write record separator")
}

func (w *Writer) writeAttrLine(attrType string, value []byte) error {
	var line string
	if isSafeString(value) {
		line = attrType + ": " + string(value)
	} else {
		line = attrType + ":: " + base64.StdEncoding.EncodeToString(value)
	}

	for _, wrapped := range wrapLine(line, w.WrapColumn) {
		if _, err := fmt.Fprintln(w.w, wrapped); err != nil {
			return errors.Wrap(err, "ldif: write attribute line")
		}
	}
	return nil
}

// wrapLine splits line into dump-format continuation lines no wider than
// column (0 or a non-positive column disables wrapping). Every line after
// the first is prefixed with a single space, which the reader strips.
func wrapLine(line string, column int) []string {
	if column <= 0 || len(line) <= column {
		return []string{line}
	}

	var out []string
	out = append(out, line[:column])
	rest := line[column:]
	for len(rest) > 0 {
		width := column - 1
		if width <= 0 {
			width = 1
		}
		if len(rest) <= width {
			out = append(out, " "+rest)
			break
		}
		out = append(out, " "+rest[:width])
		rest = rest[width:]
	}
	return out
}

// isSafeString reports whether value can be written as plain text rather
// than base64. It must not start with a space, colon or '<', and must not
// contain NUL, CR, LF or any byte above 0x7F.
func isSafeString(value []byte) bool {
	if len(value) == 0 {
		return true
	}
	if value[0] == ' ' || value[0] == ':' || value[0] == '<' {
		return false
	}
	for _, b := range value {
		if b == 0x00 || b == 0x0A || b == 0x0D || b >= 0x80 {
			return false
		}
	}
	return true
}

// ReadAll drains r into a slice, collecting every recoverable ParseError
// rather than stopping at the first one. It is a convenience used by tests
// and by small dumps; the store's bulk loader uses Reader.Next directly so
// it can honor the "clear store before any insert" ordering.
func ReadAll(r io.Reader) (entries []*entry.Entry, parseErrs []*ParseError, err error) {
	reader := NewReader(r)
	for {
		e, nextErr := reader.Next()
		if nextErr == io.EOF {
			return entries, parseErrs, nil
		}
		if pe, ok := nextErr.(*ParseError); ok {
			parseErrs = append(parseErrs, pe)
			continue
		}
		if nextErr != nil {
			return entries, parseErrs, nextErr
		}
		entries = append(entries, e)
	}
}

// WriteAll writes every entry in entries as a sequence of records.
func WriteAll(w io.Writer, entries []*entry.Entry, wrapColumn int) error {
	lw := NewWriter(w)
	lw.WrapColumn = wrapColumn
	for _, e := range entries {
		if err := lw.WriteRecord(e); err != nil {
			return err
		}
	}
	return nil
}
