// Package merge applies translations from a PO catalogue to text units.
//
// Units are matched by msgctxt (the unit name) and msgid (the source text),
// mirroring how package pofile writes the template. Units the catalogue does
// not translate are left untouched, so the writer keeps the original markup
// for them.
package merge

import (
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"

	"github.com/minios-linux/xmlkit/event"
)

// Stats counts the outcome of Apply.
type Stats struct {
	Total      int
	Translated int
	Missing    int
}

// Load reads a PO catalogue from disk.
func Load(path string) (*gotext.Po, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	po := gotext.NewPo()
	po.Parse(data)
	return po, nil
}

// Apply sets the target of every unit the catalogue translates. Units
// with blank source are skipped and not counted.
func Apply(units []*event.Unit, catalogue *gotext.Po) Stats {
	var st Stats
	for _, tu := range units {
		if strings.TrimSpace(tu.Source) == "" {
			continue
		}
		st.Total++
		target, ok := lookup(catalogue, tu)
		if !ok {
			st.Missing++
			continue
		}
		tu.SetTarget(target)
		st.Translated++
	}
	return st
}

func lookup(catalogue *gotext.Po, tu *event.Unit) (string, bool) {
	if tu.Name != "" {
		if catalogue.IsTranslatedC(tu.Source, tu.Name) {
			return catalogue.GetC(tu.Source, tu.Name), true
		}
		return "", false
	}
	if catalogue.IsTranslated(tu.Source) {
		return catalogue.Get(tu.Source), true
	}
	return "", false
}

// Percent returns the translated share, 0 for an empty run.
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Translated * 100 / s.Total
}
