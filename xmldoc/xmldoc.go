// Package xmldoc parses a UTF-8 XML document into a tree whose nodes keep
// their byte offsets in the source, so that callers can cut the document
// into verbatim skeleton fragments around the text they extract.
//
// External entities are never resolved: declared SYSTEM/PUBLIC entities
// expand to nothing and no file or network access takes place.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Parser feature names, following the SAX feature URIs.
const (
	FeatureExternalGeneralEntities = "http://xml.org/sax/features/external-general-entities"
	FeatureNamespaces              = "http://xml.org/sax/features/namespaces"
	FeatureValidation              = "http://xml.org/sax/features/validation"
)

// DefaultMaxDepth is the element nesting limit when Options.MaxDepth is 0.
const DefaultMaxDepth = 256

var (
	// ErrUnsupportedFeature is returned by SetFeature for features (or
	// feature values) this parser cannot honor.
	ErrUnsupportedFeature = errors.New("unsupported parser feature")
	// ErrMalformed marks structural problems encoding/xml accepts but an
	// XML document may not have (no root, several roots, text outside root).
	ErrMalformed = errors.New("malformed document")
)

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Kind identifies the type of a node.
type Kind int

const (
	ElementNode Kind = iota
	TextNode
	CDataNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Node is one item of the parsed tree. Start/End delimit the node in
// Document.Source; for elements InnerStart/InnerEnd delimit the content
// between the start and end tags (equal for self-closing elements).
type Node struct {
	Kind Kind
	// Name is the element name, or the target of a processing instruction.
	Name xml.Name
	Attr []xml.Attr
	// Data is the decoded text, the comment body, the PI instruction or the
	// directive body, depending on Kind.
	Data string

	Start, End           int
	InnerStart, InnerEnd int

	Parent   *Node
	Children []*Node
}

// AttrValue returns the value of the attribute with the given local name.
func (n *Node) AttrValue(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child element with the given local name.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// Elements returns the child elements in document order.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// HasElementChildren reports whether n contains at least one element.
func (n *Node) HasElementChildren() bool {
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			return true
		}
	}
	return false
}

// Text returns the concatenated character data of n and its descendants.
func (n *Node) Text() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	for _, c := range n.Children {
		switch c.Kind {
		case TextNode, CDataNode:
			b.WriteString(c.Data)
		case ElementNode:
			c.appendText(b)
		}
	}
}

// IsBlank reports whether n has no non-whitespace character data.
func (n *Node) IsBlank() bool {
	return strings.TrimSpace(n.Text()) == ""
}

// Prolog is the captured XML declaration.
type Prolog struct {
	// Present is true when the document starts with <?xml ...?>.
	Present    bool
	Version    string
	Encoding   string
	Standalone bool
	// Start and End delimit the declaration in Document.Source.
	Start, End int
	// Newline is the line break right after the declaration, empty when
	// markup follows on the same line.
	Newline string
}

// Entity is a general entity declared in the DOCTYPE internal subset.
type Entity struct {
	Name     string
	Value    string
	External bool
}

// Document is a parsed XML document.
type Document struct {
	// Source is the UTF-8 text the offsets refer to.
	Source   []byte
	Prolog   Prolog
	Doctype  *Node
	Root     *Node
	Entities map[string]Entity
	// Nodes are the top-level nodes (prolog, comments, doctype, root...).
	Nodes []*Node
}

// Raw returns the verbatim source between two offsets.
func (d *Document) Raw(start, end int) string {
	return string(d.Source[start:end])
}

// EntityNames returns the declared general entity names, sorted.
func (d *Document) EntityNames() []string {
	if len(d.Entities) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.Entities))
	for name := range d.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// Options configures a Parser.
type Options struct {
	// ProtectEntityRef keeps references to declared entities verbatim
	// (&name;) instead of expanding them.
	ProtectEntityRef bool
	// MaxDepth limits element nesting. 0 means DefaultMaxDepth.
	MaxDepth int
}

// Parser is a namespace-aware, non-validating XML parser. A Parser holds
// no per-document state and may be reused.
type Parser struct {
	opts Options
}

// NewParser creates a parser.
func NewParser(opts Options) *Parser {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Parser{opts: opts}
}

// SetFeature requests a parser feature. Only the behavior this parser
// always has can be requested: external general entities off, namespaces
// on, validation off.
func (p *Parser) SetFeature(name string, value bool) error {
	switch name {
	case FeatureExternalGeneralEntities, FeatureValidation:
		if !value {
			return nil
		}
	case FeatureNamespaces:
		if value {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%t", ErrUnsupportedFeature, name, value)
}

var (
	rePseudoAttr = regexp.MustCompile(`([A-Za-z]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	reEntityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_:][\w.:-]*)\s+(?:"([^"]*)"|'([^']*)'|(?:SYSTEM|PUBLIC)\b[^>]*)>`)
)

// Parse builds the tree for src, which must be UTF-8.
func (p *Parser) Parse(src []byte) (*Document, error) {
	doc := &Document{
		Source:   src,
		Entities: make(map[string]Entity),
	}

	dec := xml.NewDecoder(bytes.NewReader(src))
	dec.Strict = true
	dec.Entity = make(map[string]string)
	// Content is already UTF-8 whatever the prolog declares.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var stack []*Node
	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		end := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= p.opts.MaxDepth {
				return nil, fmt.Errorf("%w: element <%s> exceeds maximum depth %d", ErrMalformed, t.Name.Local, p.opts.MaxDepth)
			}
			n := &Node{
				Kind:       ElementNode,
				Name:       t.Name,
				Attr:       append([]xml.Attr(nil), t.Attr...),
				Start:      start,
				InnerStart: end,
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("%w: second root element <%s>", ErrMalformed, t.Name.Local)
				}
				doc.Root = n
			}
			attach(doc, stack, n)
			stack = append(stack, n)

		case xml.EndElement:
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n.InnerEnd = start
			n.End = end

		case xml.CharData:
			kind := TextNode
			if bytes.HasPrefix(src[start:end], []byte("<![CDATA[")) {
				kind = CDataNode
			}
			if len(stack) == 0 && (kind == CDataNode || len(bytes.TrimSpace(t)) > 0) {
				return nil, fmt.Errorf("%w: character data outside the root element", ErrMalformed)
			}
			attach(doc, stack, &Node{Kind: kind, Data: string(t), Start: start, End: end})

		case xml.Comment:
			attach(doc, stack, &Node{Kind: CommentNode, Data: string(t), Start: start, End: end})

		case xml.ProcInst:
			n := &Node{Kind: ProcInstNode, Name: xml.Name{Local: t.Target}, Data: string(t.Inst), Start: start, End: end}
			if t.Target == "xml" && start == 0 {
				doc.Prolog = parseProlog(string(t.Inst), start, end)
				doc.Prolog.Newline = lineBreakAt(src, end)
			}
			attach(doc, stack, n)

		case xml.Directive:
			n := &Node{Kind: DirectiveNode, Data: string(t), Start: start, End: end}
			if strings.HasPrefix(n.Data, "DOCTYPE") {
				doc.Doctype = n
				p.declareEntities(doc, dec, n.Data)
			}
			attach(doc, stack, n)
		}
	}

	if doc.Root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return doc, nil
}

func attach(doc *Document, stack []*Node, n *Node) {
	if len(stack) == 0 {
		doc.Nodes = append(doc.Nodes, n)
		return
	}
	parent := stack[len(stack)-1]
	n.Parent = parent
	parent.Children = append(parent.Children, n)
}

// declareEntities registers general entities from the internal subset.
// External entities resolve to empty text; with ProtectEntityRef every
// declared entity resolves to its own reference.
func (p *Parser) declareEntities(doc *Document, dec *xml.Decoder, doctype string) {
	for _, m := range reEntityDecl.FindAllStringSubmatch("<!"+doctype+">", -1) {
		name := m[1]
		e := Entity{Name: name, Value: m[2] + m[3]}
		if isExternalDecl(m[0], name) {
			e.External = true
			e.Value = ""
		}
		doc.Entities[name] = e

		if p.opts.ProtectEntityRef {
			dec.Entity[name] = "&" + name + ";"
		} else {
			dec.Entity[name] = e.Value
		}
	}
}

func lineBreakAt(src []byte, i int) string {
	switch {
	case bytes.HasPrefix(src[i:], []byte("\r\n")):
		return "\r\n"
	case bytes.HasPrefix(src[i:], []byte("\n")):
		return "\n"
	case bytes.HasPrefix(src[i:], []byte("\r")):
		return "\r"
	}
	return ""
}

// isExternalDecl reports whether an ENTITY declaration names a SYSTEM or
// PUBLIC identifier rather than a literal value.
func isExternalDecl(decl, name string) bool {
	rest := strings.TrimSpace(decl[len("<!ENTITY"):])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, name))
	return strings.HasPrefix(rest, "SYSTEM") || strings.HasPrefix(rest, "PUBLIC")
}

func parseProlog(inst string, start, end int) Prolog {
	pr := Prolog{Present: true, Version: "1.0", Start: start, End: end}
	for _, m := range rePseudoAttr.FindAllStringSubmatch(inst, -1) {
		v := m[2]
		if v == "" {
			v = m[3]
		}
		switch m[1] {
		case "version":
			pr.Version = v
		case "encoding":
			pr.Encoding = v
		case "standalone":
			pr.Standalone = v == "yes"
		}
	}
	return pr
}
