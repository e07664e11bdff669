// Package event defines the stream a filter produces: structural parts of
// the document, extracted text units, and the skeletons that let a writer
// put the document back together.
package event

import (
	"strings"

	"github.com/minios-linux/xmlkit/detect"
)

// Type identifies the kind of an event.
type Type int

const (
	StartDocument Type = iota
	DocumentPart
	TextUnit
	EndDocument
)

func (t Type) String() string {
	switch t {
	case StartDocument:
		return "START_DOCUMENT"
	case DocumentPart:
		return "DOCUMENT_PART"
	case TextUnit:
		return "TEXT_UNIT"
	case EndDocument:
		return "END_DOCUMENT"
	}
	return "UNKNOWN"
}

// Event is one item of the stream. Exactly one payload matching Type is set
// (EndDocument carries none).
type Event struct {
	Type     Type
	Start    *Start
	Part     *Part
	TextUnit *Unit
}

// ---------------------------------------------------------------------------
// Skeleton
// ---------------------------------------------------------------------------

// SelfRef is how a skeleton renders the placeholder for its owner's content.
const SelfRef = "[#$$self$]"

// Chunk is one piece of a skeleton: literal markup, or a placeholder for
// the content of the resource owning the skeleton.
type Chunk struct {
	Text string
	Self bool
}

// Skeleton is the markup surrounding a resource, in document order.
type Skeleton struct {
	Chunks []Chunk
}

// Add appends literal markup. Empty strings are ignored.
func (s *Skeleton) Add(text string) {
	if text == "" {
		return
	}
	if n := len(s.Chunks); n > 0 && !s.Chunks[n-1].Self {
		s.Chunks[n-1].Text += text
		return
	}
	s.Chunks = append(s.Chunks, Chunk{Text: text})
}

// AddSelf appends the content placeholder.
func (s *Skeleton) AddSelf() {
	s.Chunks = append(s.Chunks, Chunk{Self: true})
}

// IsEmpty reports whether the skeleton has no chunks.
func (s *Skeleton) IsEmpty() bool {
	return s == nil || len(s.Chunks) == 0
}

// String renders the skeleton with SelfRef in place of the content.
func (s *Skeleton) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range s.Chunks {
		if c.Self {
			b.WriteString(SelfRef)
			continue
		}
		b.WriteString(c.Text)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// Start opens a document. Its skeleton holds the reconstructed prolog.
type Start struct {
	Name      string
	Locale    string
	ProfileID string
	MimeType  string
	// Encoding is the output encoding label (prolog declaration first).
	Encoding string
	// Decision is the encoding resolution of the run; the writer uses its
	// codec, BOM and newline.
	Decision *detect.Decision
	LineBreak string
	// Entities names the general entities the document declares.
	Entities []string
	Skeleton *Skeleton
}

// Part is non-translatable markup.
type Part struct {
	ID       string
	Skeleton *Skeleton
}

// Property names.
const (
	PropNote = "note"
)

// Unit is an extractable text unit.
type Unit struct {
	ID       string
	Name     string
	MimeType string
	// Source is the text to translate.
	Source   string
	Skeleton *Skeleton

	// raw is the original markup between the unit's tags.
	raw        string
	target     string
	hasTarget  bool
	properties map[string]string
}

// NewUnit creates a text unit. raw is the verbatim markup the unit was
// extracted from; it is written back while no target is set.
func NewUnit(id, name, source, raw string, skel *Skeleton) *Unit {
	return &Unit{
		ID:       id,
		Name:     name,
		Source:   source,
		Skeleton: skel,
		raw:      raw,
	}
}

// Raw returns the original markup of the unit content.
func (u *Unit) Raw() string { return u.raw }

// Property returns a property value.
func (u *Unit) Property(name string) (string, bool) {
	v, ok := u.properties[name]
	return v, ok
}

// SetProperty sets a property value.
func (u *Unit) SetProperty(name, value string) {
	if u.properties == nil {
		u.properties = make(map[string]string)
	}
	u.properties[name] = value
}

// Note returns the note property.
func (u *Unit) Note() (string, bool) {
	return u.Property(PropNote)
}

// SetTarget records a translation for the unit.
func (u *Unit) SetTarget(text string) {
	u.target = text
	u.hasTarget = true
}

// Target returns the translation, if any.
func (u *Unit) Target() (string, bool) {
	return u.target, u.hasTarget
}

// ClearTarget drops the translation; the writer falls back to Raw.
func (u *Unit) ClearTarget() {
	u.target = ""
	u.hasTarget = false
}
