// Package profile is the registry of XML dialects the filter understands.
//
// The set is fixed: generic XML, Microsoft RESX, Android string resources
// and XTB translation bundles. Identifiers are persisted by consumers and
// never change; the registry only enumerates, it does not match paths.
package profile

import (
	"embed"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"
)

// FilterID is the name of the XML filter all profiles belong to.
const FilterID = "xml"

// MimeType is shared by every profile.
const MimeType = "text/xml"

// Profile identifiers.
const (
	IDGeneric        = FilterID
	IDResx           = FilterID + "-resx"
	IDAndroidStrings = FilterID + "-AndroidStrings"
	IDXtb            = FilterID + "-xtb"
)

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// Profile describes one dialect.
type Profile struct {
	ID          string
	MimeType    string
	Name        string
	Description string
	// ConfigFile names the parameter file under params/.
	ConfigFile string
	// Extensions are file extensions associated with the profile (".resx").
	Extensions []string
	// FileNames are exact base names associated with the profile.
	FileNames []string

	// UnescapeSlashes turns \" \' \n \r in source text into the characters.
	UnescapeSlashes bool
	// CommentNotes derives a note from XML comments in the skeleton.
	CommentNotes bool
	// ExplicitNotes lets a note carried by the markup win over comments.
	ExplicitNotes bool
}

var registry = []Profile{
	{
		ID:          IDGeneric,
		MimeType:    MimeType,
		Name:        "XML",
		Description: "Configuration for generic XML documents.",
		ConfigFile:  "xml.yaml",
		Extensions:  []string{".xml"},
	},
	{
		ID:            IDResx,
		MimeType:      MimeType,
		Name:          "RESX",
		Description:   "Configuration for Microsoft RESX documents (without binary data).",
		ConfigFile:    "resx.yaml",
		Extensions:    []string{".resx"},
		ExplicitNotes: true,
	},
	{
		ID:              IDAndroidStrings,
		MimeType:        MimeType,
		Name:            "Android Strings",
		Description:     "Configuration for Android Strings XML documents.",
		ConfigFile:      "AndroidStrings.yaml",
		FileNames:       []string{"strings.xml", "arrays.xml", "plurals.xml"},
		UnescapeSlashes: true,
		CommentNotes:    true,
		ExplicitNotes:   true,
	},
	{
		ID:          IDXtb,
		MimeType:    MimeType,
		Name:        "XTB",
		Description: "Configuration for XTB documents.",
		ConfigFile:  "xtb.yaml",
		Extensions:  []string{".xtb"},
	},
}

// All returns the profiles in registration order. The result is a copy.
func All() []Profile {
	out := make([]Profile, len(registry))
	for i, p := range registry {
		out[i] = p.clone()
	}
	return out
}

// IDs returns the profile identifiers in registration order.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, p := range registry {
		ids[i] = p.ID
	}
	return ids
}

// Lookup returns the profile with the given identifier.
func Lookup(id string) (Profile, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Profile{}, false
}

func (p Profile) clone() Profile {
	p.Extensions = append([]string(nil), p.Extensions...)
	p.FileNames = append([]string(nil), p.FileNames...)
	return p
}

// ---------------------------------------------------------------------------
// Parameters
// ---------------------------------------------------------------------------

// Params are the tunable settings of a filter run.
type Params struct {
	// OmitXMLDeclaration drops the XML declaration on output.
	OmitXMLDeclaration bool `yaml:"omit_xml_declaration"`
	// ForceXMLDeclaration writes a declaration even when the document had
	// none with an encoding.
	ForceXMLDeclaration bool `yaml:"force_xml_declaration"`
	// ProtectEntityRef keeps declared entity references unexpanded.
	ProtectEntityRef bool `yaml:"protect_entity_ref"`
	// EscapeGT escapes '>' in translated text.
	EscapeGT bool `yaml:"escape_gt"`
	// MaxDepth limits element nesting while parsing.
	MaxDepth int `yaml:"max_depth"`
}

// Overrides is a partial Params, as found in project configuration.
type Overrides struct {
	OmitXMLDeclaration  *bool `yaml:"omit_xml_declaration,omitempty"`
	ForceXMLDeclaration *bool `yaml:"force_xml_declaration,omitempty"`
	ProtectEntityRef    *bool `yaml:"protect_entity_ref,omitempty"`
	EscapeGT            *bool `yaml:"escape_gt,omitempty"`
	MaxDepth            *int  `yaml:"max_depth,omitempty"`
}

// Merge returns p with every set field of o applied.
func (p Params) Merge(o Overrides) Params {
	if o.OmitXMLDeclaration != nil {
		p.OmitXMLDeclaration = *o.OmitXMLDeclaration
	}
	if o.ForceXMLDeclaration != nil {
		p.ForceXMLDeclaration = *o.ForceXMLDeclaration
	}
	if o.ProtectEntityRef != nil {
		p.ProtectEntityRef = *o.ProtectEntityRef
	}
	if o.EscapeGT != nil {
		p.EscapeGT = *o.EscapeGT
	}
	if o.MaxDepth != nil {
		p.MaxDepth = *o.MaxDepth
	}
	return p
}

//go:embed params/*.yaml
var paramFiles embed.FS

// LoadParams reads the default parameters of a profile.
func LoadParams(p Profile) (Params, error) {
	name := path.Join("params", p.ConfigFile)
	data, err := paramFiles.ReadFile(name)
	if err != nil {
		return Params{}, fmt.Errorf("reading %s: %w", name, err)
	}
	var params Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		return Params{}, fmt.Errorf("parsing %s: %w", name, err)
	}
	return params, nil
}

// ConfigData returns the raw parameter file of a profile.
func ConfigData(p Profile) ([]byte, error) {
	return paramFiles.ReadFile(path.Join("params", p.ConfigFile))
}
