package filter

import (
	"strconv"
	"strings"

	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/xmldoc"
)

// pump walks a parsed document and cuts it into events. Every byte of the
// source ends up in exactly one skeleton or text unit, except the XML
// declaration, which is replaced by the reconstructed prolog.
type pump struct {
	doc           *xmldoc.Document
	rule          rule
	explicitNotes bool
	mimeType      string

	cursor  int
	pending event.Skeleton
	events  []*event.Event
	units   int
	parts   int
}

func (p *pump) run(start *event.Start) []*event.Event {
	p.events = append(p.events, &event.Event{Type: event.StartDocument, Start: start})

	if pr := p.doc.Prolog; pr.Present {
		p.cursor = pr.End + len(pr.Newline)
	}

	root := p.doc.Root
	if info, ok := p.rule(root); ok {
		p.unit(root, info)
	} else {
		p.take(root.InnerStart)
		p.flushPart()
		p.walk(root)
	}

	p.take(len(p.doc.Source))
	p.flushPart()
	p.events = append(p.events, &event.Event{Type: event.EndDocument})
	return p.events
}

func (p *pump) walk(n *xmldoc.Node) {
	for _, c := range n.Children {
		if c.Kind != xmldoc.ElementNode {
			continue
		}
		if info, ok := p.rule(c); ok {
			p.unit(c, info)
			continue
		}
		p.walk(c)
	}
}

// take moves source up to end into the pending skeleton.
func (p *pump) take(end int) {
	if end > p.cursor {
		p.pending.Add(p.doc.Raw(p.cursor, end))
		p.cursor = end
	}
}

func (p *pump) flushPart() {
	if p.pending.IsEmpty() {
		return
	}
	p.parts++
	skel := p.pending
	p.pending = event.Skeleton{}
	p.events = append(p.events, &event.Event{
		Type: event.DocumentPart,
		Part: &event.Part{ID: "dp" + strconv.Itoa(p.parts), Skeleton: &skel},
	})
}

func (p *pump) unit(n *xmldoc.Node, info unitInfo) {
	p.take(n.InnerStart)
	skel := p.pending
	p.pending = event.Skeleton{}
	skel.AddSelf()
	skel.Add(p.doc.Raw(n.InnerEnd, n.End))
	p.cursor = n.End

	var src strings.Builder
	p.appendContent(&src, n)

	p.units++
	tu := event.NewUnit("tu"+strconv.Itoa(p.units), info.name, src.String(), p.doc.Raw(n.InnerStart, n.InnerEnd), &skel)
	tu.MimeType = p.mimeType
	if p.explicitNotes && info.hasNote {
		tu.SetProperty(event.PropNote, info.note)
	}
	p.events = append(p.events, &event.Event{Type: event.TextUnit, TextUnit: tu})
}

// appendContent writes the decoded text of n; inline elements keep their
// tags verbatim around their own decoded content. Comments and processing
// instructions inside a unit are dropped from the source text.
func (p *pump) appendContent(b *strings.Builder, n *xmldoc.Node) {
	for _, c := range n.Children {
		switch c.Kind {
		case xmldoc.TextNode, xmldoc.CDataNode:
			b.WriteString(c.Data)
		case xmldoc.ElementNode:
			b.WriteString(p.doc.Raw(c.Start, c.InnerStart))
			p.appendContent(b, c)
			b.WriteString(p.doc.Raw(c.InnerEnd, c.End))
		}
	}
}
