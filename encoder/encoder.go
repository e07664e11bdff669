// Package encoder escapes translated text for output into XML markup.
//
// An XMLEncoder keeps inline tags (as found in Android strings, e.g.
// <xliff:g>) verbatim and escapes the text around them. In Android strings
// mode it also re-applies the backslash escapes the filter removed on the
// way in.
package encoder

import (
	"regexp"
	"strings"
)

// Encoder turns plain text into markup-safe text.
type Encoder interface {
	Encode(text string) string
}

// lineBreaker is implemented by encoders that follow the document's
// newline convention.
type lineBreaker interface {
	SetLineBreak(lb string)
}

// entityKeeper is implemented by encoders that leave references to the
// document's declared entities in place.
type entityKeeper interface {
	SetEntities(names []string)
}

var (
	reInlineTag = regexp.MustCompile(`</?[A-Za-z_][\w:.-]*(?:\s+[^<>]*?)?/?>`)
	reEntityRef = regexp.MustCompile(`^&([A-Za-z_:][\w.:-]*);`)
)

// XMLEncoder escapes text for XML element content.
type XMLEncoder struct {
	// AndroidStrings re-escapes quotes, apostrophes, LF and CR with a
	// backslash, as aapt expects.
	AndroidStrings bool
	// EscapeGT writes '>' as &gt;.
	EscapeGT bool
	// ProtectEntities leaves references to declared entities untouched.
	// Any other '&' is escaped.
	ProtectEntities bool
	// LineBreak replaces LF outside Android mode. Empty means "\n".
	LineBreak string

	entities map[string]bool
}

// SetEntities sets the entity names whose references are kept verbatim.
func (e *XMLEncoder) SetEntities(names []string) {
	e.entities = make(map[string]bool, len(names))
	for _, n := range names {
		e.entities[n] = true
	}
}

func (e *XMLEncoder) declaredRef(s string) bool {
	if !e.ProtectEntities || len(e.entities) == 0 {
		return false
	}
	m := reEntityRef.FindStringSubmatch(s)
	return m != nil && e.entities[m[1]]
}

// SetLineBreak sets the newline sequence used for LF.
func (e *XMLEncoder) SetLineBreak(lb string) {
	e.LineBreak = lb
}

// Encode escapes text, leaving inline tags as they are.
func (e *XMLEncoder) Encode(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range reInlineTag.FindAllStringIndex(text, -1) {
		e.encodeText(&b, text[last:loc[0]])
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	e.encodeText(&b, text[last:])
	return b.String()
}

func (e *XMLEncoder) encodeText(b *strings.Builder, s string) {
	lb := e.LineBreak
	if lb == "" {
		lb = "\n"
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '&':
			if e.declaredRef(s[i:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			if e.EscapeGT {
				b.WriteString("&gt;")
			} else {
				b.WriteByte('>')
			}
		case '\n':
			if e.AndroidStrings {
				b.WriteString(`\n`)
			} else {
				b.WriteString(lb)
			}
		case '\r':
			switch {
			case e.AndroidStrings:
				b.WriteString(`\r`)
			case i+1 < len(s) && s[i+1] == '\n':
				// the LF that follows writes the line break
			default:
				b.WriteString(lb)
			}
		case '"', '\'':
			// already escaped quotes are kept as they are
			if e.AndroidStrings && (i == 0 || s[i-1] != '\\') {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Manager maps MIME types to encoders.
type Manager struct {
	mappings map[string]Encoder
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{mappings: make(map[string]Encoder)}
}

// SetMapping registers enc for a MIME type, replacing any previous one.
func (m *Manager) SetMapping(mimeType string, enc Encoder) {
	m.mappings[mimeType] = enc
}

// Encoder returns the encoder registered for a MIME type.
func (m *Manager) Encoder(mimeType string) (Encoder, bool) {
	enc, ok := m.mappings[mimeType]
	return enc, ok
}

// Encode escapes text with the encoder of mimeType. Text is returned
// unchanged when no encoder is registered.
func (m *Manager) Encode(mimeType, text string) string {
	if enc, ok := m.mappings[mimeType]; ok {
		return enc.Encode(text)
	}
	return text
}

// SetEntities passes the document's declared entity names to every encoder
// that protects entity references.
func (m *Manager) SetEntities(names []string) {
	for _, enc := range m.mappings {
		if k, ok := enc.(entityKeeper); ok {
			k.SetEntities(names)
		}
	}
}

// SetLineBreak passes the document newline to every encoder that uses one.
func (m *Manager) SetLineBreak(lb string) {
	for _, enc := range m.mappings {
		if l, ok := enc.(lineBreaker); ok {
			l.SetLineBreak(lb)
		}
	}
}
