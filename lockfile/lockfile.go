// Package lockfile implements xmlkit.lock, which records an MD5 checksum of
// every extracted source string per document. Comparing a fresh extraction
// against it tells which text units are new, changed or gone since the last
// template was written.
//
// The lock file is stored alongside .xmlkit.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/xmlkit/event"
)

// LockFileName is the default lock file name.
const LockFileName = "xmlkit.lock"

// Version is the lock file format version.
const Version = 1

// LockFile is the xmlkit.lock structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // document -> unit key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// Load reads the lock file from dir. A missing file yields an empty lock.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file back to where it was loaded from.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := os.WriteFile(lf.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// DocumentKey normalizes a document path for use as a lock key.
func DocumentKey(path string) string {
	return filepath.ToSlash(path)
}

// UnitKey is the unit name, or its ID when the unit is unnamed.
func UnitKey(tu *event.Unit) string {
	if tu.Name != "" {
		return tu.Name
	}
	return tu.ID
}

// IsChanged reports whether a source string is new or differs from the
// recorded one.
func (lf *LockFile) IsChanged(doc, key, source string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[doc][key]
	return !ok || old != Hash(source)
}

// Update records the checksum of a source string.
func (lf *LockFile) Update(doc, key, source string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[doc] == nil {
		lf.Checksums[doc] = make(map[string]string)
	}
	lf.Checksums[doc][key] = Hash(source)
}

// Prune drops the keys of doc that are not in current.
func (lf *LockFile) Prune(doc string, current []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[doc]
	if existing == nil {
		return
	}
	valid := make(map[string]bool, len(current))
	for _, k := range current {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveDocument forgets every checksum of doc.
func (lf *LockFile) RemoveDocument(doc string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, doc)
}

// Changes is the difference between a fresh extraction and the lock.
type Changes struct {
	New     []string
	Changed []string
	Removed []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.New) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

// Diff compares the text units of doc with the recorded checksums.
func (lf *LockFile) Diff(doc string, units []*event.Unit) Changes {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	var c Changes
	existing := lf.Checksums[doc]
	seen := make(map[string]bool, len(units))
	for _, tu := range units {
		key := UnitKey(tu)
		seen[key] = true
		old, ok := existing[key]
		switch {
		case !ok:
			c.New = append(c.New, key)
		case old != Hash(tu.Source):
			c.Changed = append(c.Changed, key)
		}
	}
	for key := range existing {
		if !seen[key] {
			c.Removed = append(c.Removed, key)
		}
	}
	sort.Strings(c.Removed)
	return c
}

// Record replaces the checksums of doc with those of units.
func (lf *LockFile) Record(doc string, units []*event.Unit) {
	keys := make([]string, 0, len(units))
	for _, tu := range units {
		key := UnitKey(tu)
		lf.Update(doc, key, tu.Source)
		keys = append(keys, key)
	}
	lf.Prune(doc, keys)
}

// Stats returns the number of documents and total keys.
func (lf *LockFile) Stats() (docs, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Documents returns the sorted document keys.
func (lf *LockFile) Documents() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs := make([]string, 0, len(lf.Checksums))
	for d := range lf.Checksums {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	docs, keys := lf.Stats()
	if docs == 0 {
		return "empty"
	}

	var parts []string
	for _, d := range lf.Documents() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", d, len(lf.Checksums[d])))
	}
	return fmt.Sprintf("%d documents, %d keys (%s)", docs, keys, strings.Join(parts, ", "))
}
