// Package filter extracts translatable text from XML-family documents.
//
// A Filter runs one document at a time: Open resolves the encoding, parses
// the whole document and cuts it into events; Next hands the events out one
// by one, post-processing text units for the active dialect. Either the
// document parses completely or Open fails and no event is produced.
//
// The pipeline is assembled from Hooks, so a caller can replace document
// initialization, prolog reconstruction, dialect post-processing or
// encoder selection without touching the rest.
package filter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/minios-linux/xmlkit/detect"
	"github.com/minios-linux/xmlkit/encoder"
	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/logging"
	"github.com/minios-linux/xmlkit/profile"
	"github.com/minios-linux/xmlkit/xmldoc"
)

// Input is one document to filter.
type Input struct {
	Reader io.Reader
	// Name identifies the document in events and logs (usually its path).
	Name string
	// SourceLocale is required.
	SourceLocale string
	// Encoding is the caller-declared encoding; empty means auto.
	Encoding string
	// ProfileID selects the dialect; empty means generic XML.
	ProfileID string
}

// Hooks are the replaceable stages of the pipeline. Nil fields use the
// default implementation.
type Hooks struct {
	// InitDocument resolves the encoding and parses the document.
	InitDocument func(in Input, params profile.Params) (*xmldoc.Document, *detect.Decision, error)
	// PrologSkeleton returns the markup written before the document body.
	PrologSkeleton func(doc *xmldoc.Document, d *detect.Decision, params profile.Params) string
	// Dialect returns the text unit post-processor of a profile.
	Dialect func(p profile.Profile) Dialect
	// Encoders builds the encoder mapping used to write translations.
	Encoders func(p profile.Profile, params profile.Params) *encoder.Manager
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Filter) { f.log = l }
}

// WithHooks replaces the pipeline stages set in h.
func WithHooks(h Hooks) Option {
	return func(f *Filter) {
		if h.InitDocument != nil {
			f.hooks.InitDocument = h.InitDocument
		}
		if h.PrologSkeleton != nil {
			f.hooks.PrologSkeleton = h.PrologSkeleton
		}
		if h.Dialect != nil {
			f.hooks.Dialect = h.Dialect
		}
		if h.Encoders != nil {
			f.hooks.Encoders = h.Encoders
		}
	}
}

// WithParams overrides profile parameters for every run.
func WithParams(o profile.Overrides) Option {
	return func(f *Filter) { f.overrides = o }
}

// Filter is the XML filter. It is not safe for concurrent use; run
// concurrent documents through separate filters.
type Filter struct {
	log       zerolog.Logger
	hooks     Hooks
	overrides profile.Overrides

	input    Input
	profile  profile.Profile
	params   profile.Params
	decision *detect.Decision
	doc      *xmldoc.Document
	dialect  Dialect
	queue    []*event.Event
	pos      int
	encoders *encoder.Manager
}

// New creates a filter.
func New(opts ...Option) *Filter {
	f := &Filter{log: logging.Named("filter")}
	f.hooks = Hooks{
		InitDocument:   f.initDocument,
		PrologSkeleton: PrologSkeleton,
		Dialect:        DialectFor,
		Encoders:       DefaultEncoders,
	}
	f.profile, _ = profile.Lookup(profile.IDGeneric)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the filter identifier.
func (f *Filter) Name() string { return profile.FilterID }

// Configurations lists the dialect profiles this filter supports.
func (f *Filter) Configurations() []profile.Profile { return profile.All() }

// Open prepares a document. Configuration errors are reported before the
// input is read.
func (f *Filter) Open(in Input) error {
	f.Close()

	if strings.TrimSpace(in.SourceLocale) == "" {
		return fmt.Errorf("%w: source language not set", ErrConfiguration)
	}
	tag, err := language.Parse(in.SourceLocale)
	if err != nil {
		return fmt.Errorf("%w: source language %q: %w", ErrConfiguration, in.SourceLocale, err)
	}

	id := in.ProfileID
	if id == "" {
		id = profile.IDGeneric
	}
	p, ok := profile.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: unknown profile %q (valid: %s)", ErrConfiguration, id, strings.Join(profile.IDs(), ", "))
	}
	params, err := profile.LoadParams(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	params = params.Merge(f.overrides)
	if in.Reader == nil {
		return fmt.Errorf("%w: no input stream", ErrConfiguration)
	}

	if p.ID != f.profile.ID {
		f.encoders = nil
	}
	f.input = in
	f.profile = p
	f.params = params

	doc, decision, err := f.hooks.InitDocument(in, params)
	if err != nil {
		return err
	}
	f.doc = doc
	f.decision = decision
	f.dialect = f.hooks.Dialect(p)

	start := &event.Start{
		Name:      in.Name,
		Locale:    tag.String(),
		ProfileID: p.ID,
		MimeType:  p.MimeType,
		Encoding:  decision.Encoding,
		Decision:  decision,
		LineBreak: decision.Newline.Chars(),
		Entities:  doc.EntityNames(),
		Skeleton:  &event.Skeleton{},
	}
	start.Skeleton.Add(f.hooks.PrologSkeleton(doc, decision, params))

	pm := &pump{
		doc:           doc,
		rule:          ruleFor(p),
		explicitNotes: p.ExplicitNotes,
		mimeType:      p.MimeType,
	}
	f.queue = pm.run(start)
	f.pos = 0

	f.log.Debug().
		Str("document", in.Name).
		Str("profile", p.ID).
		Str("encoding", decision.Encoding).
		Bool("bom", decision.HadBOM).
		Str("newline", decision.Newline.String()).
		Int("units", pm.units).
		Msg("document opened")
	return nil
}

// initDocument resolves the encoding and parses the document.
func (f *Filter) initDocument(in Input, params profile.Params) (*xmldoc.Document, *detect.Decision, error) {
	parser := xmldoc.NewParser(xmldoc.Options{
		ProtectEntityRef: params.ProtectEntityRef,
		MaxDepth:         params.MaxDepth,
	})
	if err := parser.SetFeature(xmldoc.FeatureExternalGeneralEntities, false); err != nil {
		f.log.Warn().Err(err).Msg("unsupported parser feature, possible security vulnerabilities")
	}

	decision, text, err := detect.Resolve(in.Reader, in.Encoding)
	if err != nil {
		if errors.Is(err, detect.ErrUnsupportedEncoding) {
			return nil, nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return nil, nil, pkgerrors.WithStack(fmt.Errorf("%w: reading the document: %w", ErrIO, err))
	}

	doc, err := parser.Parse(text)
	if err != nil {
		return nil, nil, pkgerrors.WithStack(fmt.Errorf("%w: %w", ErrParse, err))
	}
	decision.ApplyDeclared(doc.Prolog.Encoding)
	return doc, decision, nil
}

// PrologSkeleton rebuilds the XML declaration from the parsed prolog,
// followed by the line break the source had after it. It is empty when the
// document declared no encoding (unless forced) or when the declaration is
// omitted.
func PrologSkeleton(doc *xmldoc.Document, d *detect.Decision, params profile.Params) string {
	if params.OmitXMLDeclaration {
		return ""
	}
	enc := doc.Prolog.Encoding
	if enc == "" {
		if !params.ForceXMLDeclaration {
			return ""
		}
		enc = d.Encoding
	}
	version := doc.Prolog.Version
	if version == "" {
		version = "1.0"
	}

	var b strings.Builder
	b.WriteString(`<?xml version="` + version + `"`)
	b.WriteString(` encoding="` + enc + `"`)
	if doc.Prolog.Standalone {
		b.WriteString(` standalone="yes"`)
	}
	b.WriteString("?>")
	if doc.Prolog.Present {
		b.WriteString(doc.Prolog.Newline)
	} else {
		b.WriteString(d.Newline.Chars())
	}
	return b.String()
}

// DefaultEncoders maps the profile MIME type to an XML encoder, in Android
// strings mode for the Android profile.
func DefaultEncoders(p profile.Profile, params profile.Params) *encoder.Manager {
	m := encoder.NewManager()
	m.SetMapping(p.MimeType, &encoder.XMLEncoder{
		AndroidStrings:  p.ID == profile.IDAndroidStrings,
		EscapeGT:        params.EscapeGT,
		ProtectEntities: params.ProtectEntityRef,
	})
	return m
}

// Next returns the next event, or io.EOF after EndDocument.
func (f *Filter) Next() (*event.Event, error) {
	if f.queue == nil {
		return nil, ErrNotOpen
	}
	if f.pos >= len(f.queue) {
		return nil, io.EOF
	}
	ev := f.queue[f.pos]
	f.pos++
	if ev.Type == event.TextUnit {
		f.dialect.PostProcess(ev.TextUnit)
	}
	return ev, nil
}

// Events drains the remaining events.
func (f *Filter) Events() ([]*event.Event, error) {
	var out []*event.Event
	for {
		ev, err := f.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
}

// EncoderManager returns the encoders for writing this filter's output.
// The mapping is built on first use and reused.
func (f *Filter) EncoderManager() *encoder.Manager {
	if f.encoders == nil {
		f.encoders = f.hooks.Encoders(f.profile, f.params)
	}
	return f.encoders
}

// Decision returns the encoding decision of the current document.
func (f *Filter) Decision() *detect.Decision { return f.decision }

// Document returns the parsed current document.
func (f *Filter) Document() *xmldoc.Document { return f.doc }

// Profile returns the active profile.
func (f *Filter) Profile() profile.Profile { return f.profile }

// Params returns the parameters of the current run.
func (f *Filter) Params() profile.Params { return f.params }

// Close releases the current document.
func (f *Filter) Close() {
	f.doc = nil
	f.decision = nil
	f.queue = nil
	f.pos = 0
}
