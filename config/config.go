// Package config locates the settings of an xmlkit project: the
// .xmlkit.yaml target list, the optional .env file and the project
// identity recorded in debian/changelog.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
)

// EnvFileName is loaded from the project root by LoadEnv.
const EnvFileName = ".env"

// LoadEnv loads rootDir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnv(rootDir string) (bool, error) {
	path := filepath.Join(rootDir, EnvFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("loading %s: %w", path, err)
	}
	return true, nil
}

// Project identifies the package whose resources are localized.
type Project struct {
	Name    string
	Version string
	// SourceLang is the source locale (default "en").
	SourceLang string
	// Root is the absolute project directory.
	Root string
}

// Detect works out the project identity from rootDir. debian/changelog
// wins over the directory name; the version falls back to 0.0.0. Values
// set in f (which may be nil) override both.
func Detect(rootDir string, f *File) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{Root: absRoot, SourceLang: "en"}
	if name, version, err := parseChangelog(filepath.Join(absRoot, "debian", "changelog")); err == nil {
		p.Name = name
		p.Version = version
	}
	if lang := os.Getenv(EnvSourceLang); lang != "" {
		p.SourceLang = lang
	}

	if f != nil {
		if f.Project != "" {
			p.Name = f.Project
		}
		if f.Version != "" {
			p.Version = f.Version
		}
		if f.SourceLang != "" {
			p.SourceLang = f.SourceLang
		}
	}

	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	return p
}

// changelogRe matches the first line of a Debian changelog entry.
var changelogRe = regexp.MustCompile(`^(\S+)\s+\(([^)]+)\)`)

func parseChangelog(path string) (name, version string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		if m := changelogRe.FindStringSubmatch(scanner.Text()); len(m) >= 3 {
			return m[1], m[2], nil
		}
	}
	return "", "", os.ErrNotExist
}
