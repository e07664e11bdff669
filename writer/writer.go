// Package writer rebuilds a document from filter events.
//
// Output is collected as UTF-8 and transcoded once, on EndDocument, with the
// codec the document was decoded with. The byte-order mark is written back
// when the source had one.
package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/minios-linux/xmlkit/detect"
	"github.com/minios-linux/xmlkit/encoder"
	"github.com/minios-linux/xmlkit/event"
)

// ErrNoStart is returned when events arrive before StartDocument.
var ErrNoStart = errors.New("writer: no StartDocument event")

// Writer writes events back as document bytes.
type Writer struct {
	out      io.Writer
	encoders *encoder.Manager
	decision *detect.Decision
	buf      bytes.Buffer
	started  bool
}

// New creates a writer. mgr may be nil, in which case translations are
// written unescaped.
func New(w io.Writer, mgr *encoder.Manager) *Writer {
	if mgr == nil {
		mgr = encoder.NewManager()
	}
	return &Writer{out: w, encoders: mgr}
}

// Handle writes one event.
func (w *Writer) Handle(ev *event.Event) error {
	if ev.Type != event.StartDocument && !w.started {
		return ErrNoStart
	}
	switch ev.Type {
	case event.StartDocument:
		w.start(ev.Start)
	case event.DocumentPart:
		w.buf.WriteString(ev.Part.Skeleton.String())
	case event.TextUnit:
		w.unit(ev.TextUnit)
	case event.EndDocument:
		return w.end()
	}
	return nil
}

// WriteAll writes a complete event stream.
func (w *Writer) WriteAll(events []*event.Event) error {
	for _, ev := range events {
		if err := w.Handle(ev); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) start(s *event.Start) {
	w.buf.Reset()
	w.started = true
	w.decision = s.Decision
	w.encoders.SetLineBreak(s.LineBreak)
	w.encoders.SetEntities(s.Entities)
	w.buf.WriteString(s.Skeleton.String())
}

func (w *Writer) unit(tu *event.Unit) {
	content := tu.Raw()
	if target, ok := tu.Target(); ok {
		content = w.encoders.Encode(tu.MimeType, target)
	}
	if tu.Skeleton.IsEmpty() {
		w.buf.WriteString(content)
		return
	}
	for _, c := range tu.Skeleton.Chunks {
		if c.Self {
			w.buf.WriteString(content)
			continue
		}
		w.buf.WriteString(c.Text)
	}
}

func (w *Writer) end() error {
	w.started = false
	data := w.buf.Bytes()
	if w.decision != nil {
		var err error
		if data, err = w.decision.Encode(data); err != nil {
			return err
		}
		if bom := w.decision.BOM(); len(bom) > 0 {
			if _, err := w.out.Write(bom); err != nil {
				return fmt.Errorf("writing byte-order mark: %w", err)
			}
		}
	}
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	w.buf.Reset()
	return nil
}
