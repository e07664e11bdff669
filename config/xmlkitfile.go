package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/xmlkit/android"
	"github.com/minios-linux/xmlkit/profile"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .xmlkit.yaml structure.
type File struct {
	// Project and Version override what Detect finds.
	Project string `yaml:"project,omitempty"`
	Version string `yaml:"version,omitempty"`
	// SourceLang is the locale of the source documents (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the default target language list.
	Languages []string `yaml:"languages,omitempty"`
	Targets   []Target `yaml:"targets"`
}

// Target is one group of XML resources sharing a profile and a template.
type Target struct {
	Name string `yaml:"name"`
	// Profile forces a filter profile; empty routes each file by name.
	Profile string `yaml:"profile,omitempty"`
	// Root is the working directory relative to .xmlkit.yaml (default ".").
	Root string `yaml:"root,omitempty"`
	// Sources are files, directories or globs relative to Root (default ".").
	Sources []string `yaml:"sources,omitempty"`
	// Encoding is the declared input encoding; empty means auto-detect.
	Encoding string `yaml:"encoding,omitempty"`
	// PODir holds <lang>.po catalogues (default "po").
	PODir string `yaml:"po_dir,omitempty"`
	// POTFile is the template written by extract (default <po_dir>/<name>.pot).
	POTFile string `yaml:"pot_file,omitempty"`
	// OutDir relocates translated documents; empty writes next to the source.
	OutDir string `yaml:"out_dir,omitempty"`
	// Params override the profile defaults.
	Params    profile.Overrides `yaml:"params,omitempty"`
	Languages []string          `yaml:"languages,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the configuration file name.
const FileName = ".xmlkit.yaml"

// EnvSourceLang overrides the default source language.
const EnvSourceLang = "XMLKIT_SOURCE_LANG"

// Load reads and validates .xmlkit.yaml from rootDir.
// Returns nil if no .xmlkit.yaml exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := f.normalize(path); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) normalize(path string) error {
	if f.SourceLang == "" {
		f.SourceLang = os.Getenv(EnvSourceLang)
	}
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}

	names := make(map[string]bool)
	for i := range f.Targets {
		t := &f.Targets[i]

		if t.Name == "" {
			return fmt.Errorf("%s: target #%d has no name", path, i+1)
		}
		if names[t.Name] {
			return fmt.Errorf("%s: duplicate target name %q", path, t.Name)
		}
		names[t.Name] = true

		if t.Profile != "" {
			if _, ok := profile.Lookup(t.Profile); !ok {
				return fmt.Errorf("%s: target %q has unknown profile %q (valid: %s)",
					path, t.Name, t.Profile, strings.Join(profile.IDs(), ", "))
			}
		}

		if t.Root == "" {
			t.Root = "."
		}
		if len(t.Sources) == 0 {
			t.Sources = []string{"."}
		}
		if t.PODir == "" {
			t.PODir = "po"
		}
		if t.POTFile == "" {
			t.POTFile = filepath.Join(t.PODir, t.Name+".pot")
		}
		if len(t.Languages) == 0 {
			t.Languages = f.Languages
		}
	}
	return nil
}

// Default is the configuration of a project without .xmlkit.yaml: one
// target scanning the whole tree.
func Default(name string) *File {
	f := &File{Targets: []Target{{Name: name}}}
	_ = f.normalize(FileName)
	return f
}

// Target returns the target called name.
func (f *File) Target(name string) (*Target, bool) {
	for i := range f.Targets {
		if f.Targets[i].Name == name {
			return &f.Targets[i], true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Resolving targets
// ---------------------------------------------------------------------------

// ResolvedTarget is a target with absolute paths and a language list.
type ResolvedTarget struct {
	Target    Target
	AbsRoot   string
	Languages []string
}

// Resolve anchors every target at projectRoot. Targets without languages
// get the ones found on disk.
func (f *File) Resolve(projectRoot string) ([]ResolvedTarget, error) {
	absProjectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	var resolved []ResolvedTarget
	for _, t := range f.Targets {
		rt := ResolvedTarget{Target: t, AbsRoot: filepath.Join(absProjectRoot, t.Root)}
		rt.Languages = t.Languages
		if len(rt.Languages) == 0 {
			rt.Languages = rt.detectLanguages()
		}
		resolved = append(resolved, rt)
	}
	return resolved, nil
}

// AllLanguages returns the sorted union of every target's languages.
func (f *File) AllLanguages(projectRoot string) []string {
	resolved, err := f.Resolve(projectRoot)
	if err != nil {
		return f.Languages
	}

	seen := make(map[string]bool)
	var all []string
	for _, rt := range resolved {
		for _, lang := range rt.Languages {
			if !seen[lang] {
				seen[lang] = true
				all = append(all, lang)
			}
		}
	}
	sort.Strings(all)
	return all
}

// AbsPODir returns the absolute catalogue directory.
func (rt *ResolvedTarget) AbsPODir() string {
	return filepath.Join(rt.AbsRoot, rt.Target.PODir)
}

// AbsPOTFile returns the absolute template path.
func (rt *ResolvedTarget) AbsPOTFile() string {
	return filepath.Join(rt.AbsRoot, rt.Target.POTFile)
}

// POPath returns the catalogue of lang.
func (rt *ResolvedTarget) POPath(lang string) string {
	return filepath.Join(rt.AbsPODir(), lang+".po")
}

// SourcePaths expands Sources into absolute paths. Glob patterns that
// match nothing are dropped; plain paths are kept as given.
func (rt *ResolvedTarget) SourcePaths() ([]string, error) {
	var paths []string
	for _, src := range rt.Target.Sources {
		abs := filepath.Join(rt.AbsRoot, src)
		if !strings.ContainsAny(src, "*?[") {
			paths = append(paths, abs)
			continue
		}
		matches, err := filepath.Glob(abs)
		if err != nil {
			return nil, fmt.Errorf("target %q: bad pattern %q: %w", rt.Target.Name, src, err)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// OutputPath returns where the lang translation of source is written.
//
// Android resources go to a values-<lang> sibling directory, everything
// else gets the language before the extension (Strings.fr.resx).
func (rt *ResolvedTarget) OutputPath(source, lang string) string {
	var out string
	if rt.isAndroid(source) {
		out = android.LocalizedPath(source, lang)
	} else {
		ext := filepath.Ext(source)
		out = strings.TrimSuffix(source, ext) + "." + lang + ext
	}

	if rt.Target.OutDir == "" {
		return out
	}
	rel, err := filepath.Rel(rt.AbsRoot, out)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(out)
	}
	return filepath.Join(rt.AbsRoot, rt.Target.OutDir, rel)
}

// IsTranslation reports whether path looks like a document OutputPath
// produced, so that extraction does not pick translations up as sources.
func (rt *ResolvedTarget) IsTranslation(path string) bool {
	if _, ok := android.LocaleFromDir(filepath.Base(filepath.Dir(path))); ok {
		return true
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := filepath.Ext(stem)
	if ext == "" {
		return false
	}
	lang := ext[1:]
	for _, l := range rt.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

func (rt *ResolvedTarget) isAndroid(source string) bool {
	if rt.Target.Profile != "" {
		return rt.Target.Profile == profile.IDAndroidStrings
	}
	p, ok := profile.Lookup(profile.IDAndroidStrings)
	if !ok {
		return false
	}
	base := strings.ToLower(filepath.Base(source))
	for _, name := range p.FileNames {
		if base == strings.ToLower(name) {
			return true
		}
	}
	return false
}

// detectLanguages looks for <lang>.po catalogues, then for Android
// values-XX directories next to the sources.
func (rt *ResolvedTarget) detectLanguages() []string {
	if langs := detectLanguagesFlat(rt.AbsPODir()); len(langs) > 0 {
		return langs
	}

	paths, err := rt.SourcePaths()
	if err != nil {
		return nil
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || !rt.isAndroid(p) {
			continue
		}
		resDir := filepath.Dir(filepath.Dir(p))
		if langs := android.DetectLanguages(resDir, filepath.Base(p)); len(langs) > 0 {
			return langs
		}
	}
	return nil
}

// detectLanguagesFlat finds language codes from .po files in a directory.
func detectLanguagesFlat(poDir string) []string {
	entries, err := os.ReadDir(poDir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".po") && !entry.IsDir() {
			langs = append(langs, strings.TrimSuffix(name, ".po"))
		}
	}
	sort.Strings(langs)
	return langs
}
