// Package android maps locales to Android resource directories
// (res/values-pt-rBR/strings.xml and friends).
package android

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ValuesDir is the directory holding default (source) resources.
const ValuesDir = "values"

// LocaleDirName converts a BCP 47 code to a values directory name
// ("pt-BR" -> "values-pt-rBR", "ru" -> "values-ru").
func LocaleDirName(lang string) string {
	return ValuesDir + "-" + toAndroidLocale(lang)
}

// LocaleFromDir returns the BCP 47 code of a values-XX directory name.
func LocaleFromDir(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, ValuesDir+"-")
	if !ok || rest == "" {
		return "", false
	}
	return toStandardLocale(rest), true
}

// LocalizedPath returns where the translation of a resource file lives:
// the file name is kept and its values directory gets the locale qualifier.
// A path outside a values directory gets a values-XX sibling directory.
func LocalizedPath(source, lang string) string {
	dir, file := filepath.Split(source)
	dir = filepath.Clean(dir)
	parent := filepath.Base(dir)
	if parent == ValuesDir || strings.HasPrefix(parent, ValuesDir+"-") {
		dir = filepath.Dir(dir)
	}
	return filepath.Join(dir, LocaleDirName(lang), file)
}

// DetectLanguages scans a res/ directory for values-XX/ directories that
// contain fileName and returns their language codes.
func DetectLanguages(resDir, fileName string) []string {
	entries, err := os.ReadDir(resDir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		lang, ok := LocaleFromDir(entry.Name())
		if !ok {
			continue
		}
		if _, err := os.Stat(filepath.Join(resDir, entry.Name(), fileName)); err == nil {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// toStandardLocale: "pt-rBR" -> "pt-BR", "zh-rCN" -> "zh-CN", "ru" -> "ru".
func toStandardLocale(androidLocale string) string {
	if idx := strings.Index(androidLocale, "-r"); idx >= 0 {
		return androidLocale[:idx] + "-" + androidLocale[idx+2:]
	}
	return androidLocale
}

// toAndroidLocale: "pt-BR" -> "pt-rBR", "pt_BR" -> "pt-rBR", "ru" -> "ru".
func toAndroidLocale(lang string) string {
	parts := strings.SplitN(strings.ReplaceAll(lang, "_", "-"), "-", 2)
	if len(parts) == 2 && parts[1] != "" {
		return parts[0] + "-r" + parts[1]
	}
	return parts[0]
}
