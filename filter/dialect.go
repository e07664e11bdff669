package filter

import (
	"regexp"
	"strings"

	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/profile"
)

// Dialect rewrites text units after extraction. One is chosen per run from
// the active profile.
type Dialect interface {
	PostProcess(tu *event.Unit)
}

// DialectFor returns the post-processor for a profile.
func DialectFor(p profile.Profile) Dialect {
	if p.UnescapeSlashes || p.CommentNotes {
		return androidDialect{unescape: p.UnescapeSlashes, notes: p.CommentNotes}
	}
	return plainDialect{}
}

// plainDialect leaves text units untouched.
type plainDialect struct{}

func (plainDialect) PostProcess(*event.Unit) {}

// androidDialect undoes aapt backslash escapes and mines notes from the
// comments preceding a string.
type androidDialect struct {
	unescape bool
	notes    bool
}

func (d androidDialect) PostProcess(tu *event.Unit) {
	if d.unescape {
		tu.Source = Unescape(tu.Source)
	}
	if d.notes {
		extractNoteIfNone(tu)
	}
}

var (
	reEscapedQuote = regexp.MustCompile(`(\\)("|')`)
	reEscapedLF    = regexp.MustCompile(`\\n`)
	reEscapedCR    = regexp.MustCompile(`\\r`)
	reXMLComment   = regexp.MustCompile(`(?s)<!--(.*?)-->`)
)

// Unescape removes the backslash before quotes and apostrophes, then turns
// \n and \r into LF and CR. The order is fixed.
func Unescape(text string) string {
	text = reEscapedQuote.ReplaceAllString(text, "$2")
	text = reEscapedLF.ReplaceAllString(text, "\n")
	return reEscapedCR.ReplaceAllString(text, "\r")
}

// extractNoteIfNone sets the note from skeleton comments unless the unit
// already has one.
func extractNoteIfNone(tu *event.Unit) {
	if _, ok := tu.Note(); ok {
		return
	}
	if note, ok := NoteFromComments(tu.Skeleton.String()); ok {
		tu.SetProperty(event.PropNote, note)
	}
}

// NoteFromComments joins the trimmed bodies of all XML comments in
// skeleton with single spaces, in document order. There is no note when
// every body is empty.
func NoteFromComments(skeleton string) (string, bool) {
	var b strings.Builder
	for _, m := range reXMLComment.FindAllStringSubmatch(skeleton, -1) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(m[1]))
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
