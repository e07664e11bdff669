package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/xmlkit/profile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Setenv(EnvSourceLang, "")

	t.Run("missing file returns nil", func(t *testing.T) {
		f, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f != nil {
			t.Fatalf("Load expected nil, got %#v", f)
		}
	})

	t.Run("applies defaults and inheritance", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "languages: [ru, de]\n"+
			"targets:\n"+
			"  - name: app\n"+
			"    profile: xml-AndroidStrings\n"+
			"    params:\n"+
			"      max_depth: 12\n")

		f, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f.SourceLang != "en" {
			t.Fatalf("SourceLang = %q, want en", f.SourceLang)
		}
		target := f.Targets[0]
		if target.Root != "." || target.PODir != "po" {
			t.Fatalf("Root, PODir = %q, %q; want ., po", target.Root, target.PODir)
		}
		if target.POTFile != filepath.Join("po", "app.pot") {
			t.Fatalf("POTFile = %q, want %q", target.POTFile, filepath.Join("po", "app.pot"))
		}
		if !reflect.DeepEqual(target.Sources, []string{"."}) {
			t.Fatalf("Sources = %v, want [.]", target.Sources)
		}
		if !reflect.DeepEqual(target.Languages, []string{"ru", "de"}) {
			t.Fatalf("Languages = %v, want [ru de]", target.Languages)
		}
		if target.Params.MaxDepth == nil || *target.Params.MaxDepth != 12 {
			t.Fatalf("Params.MaxDepth = %v, want 12", target.Params.MaxDepth)
		}
		if _, ok := f.Target("app"); !ok {
			t.Fatal("Target(app) not found")
		}
	})

	t.Run("source language from environment", func(t *testing.T) {
		t.Setenv(EnvSourceLang, "fr")
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "targets: []\n")
		f, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f.SourceLang != "fr" {
			t.Fatalf("SourceLang = %q, want fr", f.SourceLang)
		}
	})

	errorCases := []struct {
		name string
		yaml string
		want string
	}{
		{name: "missing name", yaml: "targets:\n  - profile: xml\n", want: "has no name"},
		{name: "duplicate name", yaml: "targets:\n  - name: a\n  - name: a\n", want: "duplicate target"},
		{name: "unknown profile", yaml: "targets:\n  - name: a\n    profile: json\n", want: "unknown profile"},
		{name: "bad yaml", yaml: "targets: [\n", want: "parsing"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tc.yaml)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load error = %v, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestResolveDetectsLanguages(t *testing.T) {
	t.Run("po catalogues", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "po", "ru.po"), "")
		writeFile(t, filepath.Join(dir, "po", "de.po"), "")

		f := &File{Targets: []Target{{Name: "app", Root: ".", PODir: "po", Sources: []string{"."}}}}
		resolved, err := f.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if !filepath.IsAbs(resolved[0].AbsRoot) {
			t.Fatalf("AbsRoot is not absolute: %q", resolved[0].AbsRoot)
		}
		if !reflect.DeepEqual(resolved[0].Languages, []string{"de", "ru"}) {
			t.Fatalf("Languages = %v, want [de ru]", resolved[0].Languages)
		}
		if got := f.AllLanguages(dir); !reflect.DeepEqual(got, []string{"de", "ru"}) {
			t.Fatalf("AllLanguages = %v, want [de ru]", got)
		}
		if got := resolved[0].POPath("ru"); got != filepath.Join(resolved[0].AbsRoot, "po", "ru.po") {
			t.Fatalf("POPath(ru) = %q", got)
		}
	})

	t.Run("android values directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "res", "values", "strings.xml"), "<resources/>")
		writeFile(t, filepath.Join(dir, "res", "values-uk", "strings.xml"), "<resources/>")

		f := &File{Targets: []Target{{
			Name:    "android",
			Root:    ".",
			PODir:   "po",
			Sources: []string{"res/values/*.xml"},
		}}}
		resolved, err := f.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if !reflect.DeepEqual(resolved[0].Languages, []string{"uk"}) {
			t.Fatalf("Languages = %v, want [uk]", resolved[0].Languages)
		}
	})
}

func TestSourcePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.resx"), "")
	writeFile(t, filepath.Join(dir, "b.resx"), "")

	rt := ResolvedTarget{
		Target:  Target{Name: "x", Sources: []string{"*.resx", "strings", "*.xtb"}},
		AbsRoot: dir,
	}
	got, err := rt.SourcePaths()
	if err != nil {
		t.Fatalf("SourcePaths error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.resx"),
		filepath.Join(dir, "b.resx"),
		filepath.Join(dir, "strings"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SourcePaths = %v, want %v", got, want)
	}
}

func TestOutputPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj")
	cases := []struct {
		name    string
		profile string
		outDir  string
		source  string
		want    string
	}{
		{
			name:   "android by file name",
			source: filepath.Join(root, "res", "values", "strings.xml"),
			want:   filepath.Join(root, "res", "values-pt-rBR", "strings.xml"),
		},
		{
			name:    "android forced",
			profile: profile.IDAndroidStrings,
			source:  filepath.Join(root, "res", "values", "arrays.xml"),
			want:    filepath.Join(root, "res", "values-pt-rBR", "arrays.xml"),
		},
		{
			name:   "resx",
			source: filepath.Join(root, "Properties", "Strings.resx"),
			want:   filepath.Join(root, "Properties", "Strings.pt-BR.resx"),
		},
		{
			name:   "out dir",
			outDir: "build",
			source: filepath.Join(root, "data", "messages.xtb"),
			want:   filepath.Join(root, "build", "data", "messages.pt-BR.xtb"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := ResolvedTarget{Target: Target{Profile: tc.profile, OutDir: tc.outDir}, AbsRoot: root}
			if got := rt.OutputPath(tc.source, "pt-BR"); got != tc.want {
				t.Fatalf("OutputPath = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvSourceLang, "")
	f := Default("widgets")
	if len(f.Targets) != 1 {
		t.Fatalf("Default targets = %d, want 1", len(f.Targets))
	}
	target := f.Targets[0]
	if target.POTFile != filepath.Join("po", "widgets.pot") || f.SourceLang != "en" {
		t.Fatalf("Default = %+v", f)
	}
}

func TestIsTranslation(t *testing.T) {
	rt := ResolvedTarget{Languages: []string{"fr", "pt-BR"}}
	cases := []struct {
		path string
		want bool
	}{
		{path: filepath.Join("res", "values", "strings.xml"), want: false},
		{path: filepath.Join("res", "values-fr", "strings.xml"), want: true},
		{path: "Strings.resx", want: false},
		{path: "Strings.fr.resx", want: true},
		{path: "messages.pt-BR.xtb", want: true},
		{path: "app.config.xml", want: false},
	}
	for _, tc := range cases {
		if got := rt.IsTranslation(tc.path); got != tc.want {
			t.Fatalf("IsTranslation(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDetectProject(t *testing.T) {
	t.Setenv(EnvSourceLang, "")

	t.Run("from changelog", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "debian", "changelog"),
			"minios-tools (4.1.2) unstable; urgency=medium\n\n  * Release.\n")
		p := Detect(dir, nil)
		if p.Name != "minios-tools" || p.Version != "4.1.2" {
			t.Fatalf("Detect = %q %q, want minios-tools 4.1.2", p.Name, p.Version)
		}
		if p.SourceLang != "en" {
			t.Fatalf("SourceLang = %q, want en", p.SourceLang)
		}
	})

	t.Run("fallbacks", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "myapp")
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatalf("Mkdir: %v", err)
		}
		p := Detect(dir, nil)
		if p.Name != "myapp" || p.Version != "0.0.0" {
			t.Fatalf("Detect = %q %q, want myapp 0.0.0", p.Name, p.Version)
		}
	})

	t.Run("config file wins", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "debian", "changelog"), "pkg (1.0) unstable; urgency=low\n")
		p := Detect(dir, &File{Project: "widgets", Version: "2.0", SourceLang: "de"})
		if p.Name != "widgets" || p.Version != "2.0" || p.SourceLang != "de" {
			t.Fatalf("Detect = %+v", p)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	const key = "XMLKIT_TEST_LOADENV_TOKEN"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	found, err := LoadEnv(dir)
	if err != nil || found {
		t.Fatalf("LoadEnv(no file) = %v, %v; want false, nil", found, err)
	}

	writeFile(t, filepath.Join(dir, EnvFileName), key+"=secret\n")
	found, err = LoadEnv(dir)
	if err != nil || !found {
		t.Fatalf("LoadEnv = %v, %v; want true, nil", found, err)
	}
	if got := os.Getenv(key); got != "secret" {
		t.Fatalf("%s = %q, want secret", key, got)
	}
}
