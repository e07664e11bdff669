// Package pofile writes extracted text units as a gettext POT template.
//
// Each text unit becomes one entry: the unit name is the msgctxt, the
// source text the msgid. Reading catalogues back is left to gotext (see
// package merge).
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minios-linux/xmlkit/event"
)

// Entry is a single message of a template.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#." (unit notes).
	ExtractedComments []string
	// References are "#:" lines, "document:unit".
	References []string
	// Flags are "#," lines.
	Flags []string

	MsgCtxt string
	MsgID   string
	MsgStr  string
}

// HasFlag checks if a specific flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// File is a PO/POT file.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the messages in first-seen order.
	Entries []*Entry

	index map[string]*Entry
}

// NewFile creates a new empty file.
func NewFile() *File {
	return &File{
		Header: &Entry{},
		index:  make(map[string]*Entry),
	}
}

func key(ctxt, id string) string { return ctxt + "\x04" + id }

// Lookup finds an entry by context and msgid.
func (f *File) Lookup(ctxt, id string) *Entry {
	return f.index[key(ctxt, id)]
}

// Add appends e, or merges its references and comments into an existing
// entry with the same context and msgid.
func (f *File) Add(e *Entry) *Entry {
	if f.index == nil {
		f.index = make(map[string]*Entry)
	}
	k := key(e.MsgCtxt, e.MsgID)
	if prev, ok := f.index[k]; ok {
		prev.References = appendUnique(prev.References, e.References...)
		prev.ExtractedComments = appendUnique(prev.ExtractedComments, e.ExtractedComments...)
		return prev
	}
	f.index[k] = e
	f.Entries = append(f.Entries, e)
	return e
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, have := range list {
			if have == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{}
	}

	lines := strings.Split(f.Header.MsgStr, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 && strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
			lines[i] = name + ": " + value
			f.Header.MsgStr = strings.Join(lines, "\n")
			return
		}
	}
	// Insert before trailing empty line
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = append(lines[:len(lines)-1], name+": "+value, "")
	} else {
		lines = append(lines, name+": "+value)
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// FromTextUnits builds a template from text units. ref names the source
// document in references; notes become extracted comments.
func FromTextUnits(units []*event.Unit, ref string) *File {
	f := NewFile()
	AddTextUnits(f, units, ref)
	return f
}

// AddTextUnits appends text units to an existing template.
func AddTextUnits(f *File, units []*event.Unit, ref string) {
	for _, tu := range units {
		if strings.TrimSpace(tu.Source) == "" {
			continue
		}
		e := &Entry{MsgCtxt: tu.Name, MsgID: tu.Source}
		if ref != "" {
			name := tu.Name
			if name == "" {
				name = tu.ID
			}
			e.References = []string{filepath.ToSlash(ref) + ":" + name}
		}
		if note, ok := tu.Note(); ok && note != "" {
			e.ExtractedComments = strings.Split(note, "\n")
		}
		f.Add(e)
	}
}

// Write writes the file.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if f.Header != nil {
		writeEntry(bw, f.Header)
	}
	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		writeEntry(bw, e)
	}
	return bw.Flush()
}

// WriteFile writes the file to disk, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

func writeEntry(w *bufio.Writer, e *Entry) {
	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.MsgCtxt != "" {
		writeQuotedField(w, "msgctxt", e.MsgCtxt)
	}
	writeQuotedField(w, "msgid", e.MsgID)
	writeQuotedField(w, "msgstr", e.MsgStr)
}

// writeQuotedField writes a field, splitting multiline values after each
// newline.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// MakeHeader creates a template header. The creation date is taken from
// now so that callers can pin it.
func MakeHeader(project, version string, now time.Time) *Entry {
	stamp := now.UTC().Format("2006-01-02 15:04+0000")
	header := fmt.Sprintf(
		"Project-Id-Version: %s %s\n"+
			"POT-Creation-Date: %s\n"+
			"PO-Revision-Date: YEAR-MO-DA HO:MI+ZONE\n"+
			"Last-Translator: \n"+
			"Language-Team: \n"+
			"Language: \n"+
			"MIME-Version: 1.0\n"+
			"Content-Type: text/plain; charset=UTF-8\n"+
			"Content-Transfer-Encoding: 8bit\n"+
			"X-Generator: xmlkit\n",
		project, version, stamp,
	)
	return &Entry{
		TranslatorComments: []string{
			fmt.Sprintf("Translation template for %s.", project),
		},
		Flags:  []string{"fuzzy"},
		MsgStr: header,
	}
}
