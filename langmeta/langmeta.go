// Package langmeta canonicalizes locale codes and provides display
// metadata (native name, English name, emoji flag) for CLI output.
package langmeta

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Tag     language.Tag
	Name    string // native name
	English string
	Flag    string
}

// Parse accepts BCP 47 tags as well as POSIX-style codes (pt_BR, ru_RU.UTF-8).
func Parse(lang string) (language.Tag, error) {
	s := strings.TrimSpace(lang)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" {
		return language.Und, fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	return tag, nil
}

// Canonicalize returns the canonical BCP 47 form of lang, or lang itself
// when it cannot be parsed.
func Canonicalize(lang string) string {
	tag, err := Parse(lang)
	if err != nil {
		return strings.TrimSpace(lang)
	}
	return tag.String()
}

// Resolve returns best-effort metadata for a language code. Unknown codes
// pass through as their own name.
func Resolve(lang string) Meta {
	tag, err := Parse(lang)
	if err != nil {
		return Meta{Tag: language.Und, Name: lang, English: lang}
	}
	m := Meta{
		Tag:     tag,
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
		Flag:    flag(tag),
	}
	if m.Name == "" {
		m.Name = lang
	}
	if m.English == "" {
		m.English = m.Name
	}
	return m
}

// Label is "Native (code)", with the flag in front when there is one.
func (m Meta) Label() string {
	s := fmt.Sprintf("%s (%s)", m.Name, m.Tag)
	if m.Flag != "" {
		s = m.Flag + " " + s
	}
	return s
}

// flag builds the regional-indicator emoji of the tag's most likely region.
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No {
		return ""
	}
	code := region.String()
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return ""
	}
	return string([]rune{0x1F1E6 + rune(code[0]-'A'), 0x1F1E6 + rune(code[1]-'A')})
}
