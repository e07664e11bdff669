package android

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLocaleDirNames(t *testing.T) {
	cases := []struct {
		lang string
		dir  string
		back string
	}{
		{lang: "ru", dir: "values-ru", back: "ru"},
		{lang: "pt-BR", dir: "values-pt-rBR", back: "pt-BR"},
		{lang: "zh_CN", dir: "values-zh-rCN", back: "zh-CN"},
	}
	for _, tc := range cases {
		if got := LocaleDirName(tc.lang); got != tc.dir {
			t.Fatalf("LocaleDirName(%q) = %q, want %q", tc.lang, got, tc.dir)
		}
		if got, ok := LocaleFromDir(tc.dir); !ok || got != tc.back {
			t.Fatalf("LocaleFromDir(%q) = %q, %v; want %q", tc.dir, got, ok, tc.back)
		}
	}
	for _, name := range []string{"values", "values-", "layout-land"} {
		if _, ok := LocaleFromDir(name); ok {
			t.Fatalf("LocaleFromDir(%q) should not match", name)
		}
	}
}

func TestLocalizedPath(t *testing.T) {
	cases := []struct {
		source string
		lang   string
		want   string
	}{
		{source: filepath.Join("app", "res", "values", "strings.xml"), lang: "fr", want: filepath.Join("app", "res", "values-fr", "strings.xml")},
		{source: filepath.Join("res", "values-en", "plurals.xml"), lang: "pt-BR", want: filepath.Join("res", "values-pt-rBR", "plurals.xml")},
		{source: filepath.Join("strings", "strings.xml"), lang: "de", want: filepath.Join("strings", "values-de", "strings.xml")},
	}
	for _, tc := range cases {
		if got := LocalizedPath(tc.source, tc.lang); got != tc.want {
			t.Fatalf("LocalizedPath(%q, %q) = %q, want %q", tc.source, tc.lang, got, tc.want)
		}
	}
}

func TestDetectLanguages(t *testing.T) {
	res := t.TempDir()
	for _, dir := range []string{"values", "values-ru", "values-pt-rBR", "values-de"} {
		if err := os.MkdirAll(filepath.Join(res, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, dir := range []string{"values", "values-ru", "values-pt-rBR"} {
		if err := os.WriteFile(filepath.Join(res, dir, "strings.xml"), []byte("<resources/>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := DetectLanguages(res, "strings.xml")
	if !reflect.DeepEqual(got, []string{"pt-BR", "ru"}) {
		t.Fatalf("DetectLanguages = %v", got)
	}
	if DetectLanguages(filepath.Join(res, "missing"), "strings.xml") != nil {
		t.Fatal("missing res dir should yield nil")
	}
}
