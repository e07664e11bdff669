// Package detect resolves the character encoding, byte-order mark and
// newline convention of a raw XML document and decodes it to UTF-8.
//
// The label exposed to callers collapses UTF-16LE/UTF-16BE to "UTF-16";
// the codec used to decode keeps the byte order so that the document can
// be written back byte for byte.
package detect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// ErrUnsupportedEncoding is returned when a declared encoding label is not
// known to any encoding index.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Canonical labels.
const (
	UTF8    = "UTF-8"
	UTF16   = "UTF-16"
	UTF16LE = "UTF-16LE"
	UTF16BE = "UTF-16BE"
	UTF32LE = "UTF-32LE"
	UTF32BE = "UTF-32BE"
)

// ---------------------------------------------------------------------------
// Newline style
// ---------------------------------------------------------------------------

// Newline is the line-break convention of a document.
type Newline int

const (
	// NewlineUnknown means the document contains no line break.
	NewlineUnknown Newline = iota
	// NewlineLF is "\n".
	NewlineLF
	// NewlineCRLF is "\r\n".
	NewlineCRLF
	// NewlineCR is "\r".
	NewlineCR
)

func (n Newline) String() string {
	switch n {
	case NewlineLF:
		return "LF"
	case NewlineCRLF:
		return "CRLF"
	case NewlineCR:
		return "CR"
	}
	return "unknown"
}

// Chars returns the line-break sequence. Unknown falls back to "\n".
func (n Newline) Chars() string {
	switch n {
	case NewlineCRLF:
		return "\r\n"
	case NewlineCR:
		return "\r"
	}
	return "\n"
}

// ---------------------------------------------------------------------------
// Decision
// ---------------------------------------------------------------------------

// Decision is the outcome of encoding resolution for one document.
type Decision struct {
	// Encoding is the label used for the document: the prolog declaration
	// once ApplyDeclared has run, the detected label otherwise.
	Encoding string
	// Detected is the label produced by BOM/declaration/default resolution.
	Detected string
	// HadBOM reports that a byte-order mark was found and stripped.
	HadBOM bool
	// Newline is the first line-break convention found in the content.
	Newline Newline
	// AutoDetected is true when the encoding came from a BOM rather than
	// from the caller or the UTF-8 default.
	AutoDetected bool
	// Codec decodes the content and encodes it back on output.
	Codec encoding.Encoding

	bom []byte
}

// HasUTF8BOM reports whether the document started with a UTF-8 BOM.
func (d *Decision) HasUTF8BOM() bool {
	return d.HadBOM && bytes.Equal(d.bom, bomUTF8)
}

// BOM returns the stripped byte-order mark, or nil.
func (d *Decision) BOM() []byte {
	return d.bom
}

// IsUTF8 reports whether content is passed through without transcoding.
func (d *Decision) IsUTF8() bool {
	return d.Codec == unicode.UTF8
}

// ApplyDeclared relabels the document with the encoding declared in its
// XML prolog. An empty declaration keeps the detected label. The codec is
// never changed: content has already been decoded with it.
func (d *Decision) ApplyDeclared(declared string) {
	if declared = strings.TrimSpace(declared); declared != "" {
		d.Encoding = declared
		return
	}
	d.Encoding = d.Detected
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
)

// boms is ordered so that UTF-32LE is tried before its UTF-16LE prefix.
var boms = []struct {
	mark  []byte
	label string
}{
	{bomUTF32BE, UTF32BE},
	{bomUTF32LE, UTF32LE},
	{bomUTF8, UTF8},
	{bomUTF16BE, UTF16BE},
	{bomUTF16LE, UTF16LE},
}

// Resolve reads the whole stream, strips a BOM and decodes the content to
// UTF-8. declared is the caller-supplied encoding and may be empty.
func Resolve(r io.Reader, declared string) (*Decision, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading document: %w", err)
	}
	return ResolveBytes(data, declared)
}

// ResolveBytes is Resolve over an in-memory document.
func ResolveBytes(data []byte, declared string) (*Decision, []byte, error) {
	label := UTF8
	if s := strings.TrimSpace(declared); s != "" {
		label = s
	}

	d := &Decision{}
	for _, b := range boms {
		if bytes.HasPrefix(data, b.mark) {
			d.HadBOM = true
			d.AutoDetected = true
			d.bom = b.mark
			label = b.label
			data = data[len(b.mark):]
			break
		}
	}

	codec, err := Lookup(label)
	if err != nil {
		return nil, nil, err
	}
	d.Codec = codec
	d.Detected = Normalize(label)
	d.Encoding = d.Detected

	text, err := decode(codec, data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s content: %w", d.Detected, err)
	}
	d.Newline = DetectNewline(text)
	return d, text, nil
}

// Normalize collapses endianness-qualified UTF-16 labels to "UTF-16" and
// upper-cases the UTF family names. Other labels are returned trimmed.
func Normalize(label string) string {
	label = strings.TrimSpace(label)
	switch strings.ToUpper(label) {
	case UTF16LE, UTF16BE, UTF16:
		return UTF16
	case UTF8, "UTF8":
		return UTF8
	case UTF32LE:
		return UTF32LE
	case UTF32BE:
		return UTF32BE
	}
	return label
}

// Lookup returns the codec for an encoding label.
func Lookup(label string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case UTF8, "UTF8":
		return unicode.UTF8, nil
	case UTF16, UTF16BE:
		// BOMs are stripped before decoding and re-emitted by the writer.
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case UTF32BE, "UTF-32":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), nil
	case UTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), nil
	}
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(label); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, label)
}

// decode transcodes data to UTF-8. UTF-8 input is returned untouched so
// that malformed sequences reach the parser instead of being replaced.
func decode(codec encoding.Encoding, data []byte) ([]byte, error) {
	if codec == unicode.UTF8 {
		return data, nil
	}
	out, _, err := transform.Bytes(codec.NewDecoder(), data)
	return out, err
}

// DetectNewline reports the first line-break convention found in text.
func DetectNewline(text []byte) Newline {
	i := bytes.IndexAny(text, "\r\n")
	if i < 0 {
		return NewlineUnknown
	}
	if text[i] == '\n' {
		return NewlineLF
	}
	if i+1 < len(text) && text[i+1] == '\n' {
		return NewlineCRLF
	}
	return NewlineCR
}

// Encode transcodes UTF-8 text back to the decision's codec. Runes the
// codec cannot represent are written as numeric character references.
func (d *Decision) Encode(text []byte) ([]byte, error) {
	if d.Codec == nil || d.IsUTF8() {
		return text, nil
	}
	enc := encoding.HTMLEscapeUnsupported(d.Codec.NewEncoder())
	out, _, err := transform.Bytes(enc, text)
	if err != nil {
		return nil, fmt.Errorf("encoding %s output: %w", d.Encoding, err)
	}
	return out, nil
}
