package merge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/minios-linux/xmlkit/event"
)

const catalogue = `msgid ""
msgstr ""
"Language: fr\n"
"Content-Type: text/plain; charset=UTF-8\n"

msgctxt "hello"
msgid "Hello 'world'"
msgstr "Bonjour 'monde'"

msgctxt "count"
msgid "%d items"
msgstr "%d éléments"

msgid "Unnamed"
msgstr "Sans nom"
`

func TestApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fr.po")
	if err := os.WriteFile(path, []byte(catalogue), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	po, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	units := []*event.Unit{
		event.NewUnit("tu1", "hello", "Hello 'world'", `Hello \'world\'`, nil),
		event.NewUnit("tu2", "count", "%d items", "%d items", nil),
		event.NewUnit("tu4", "", "Unnamed", "Unnamed", nil),
		event.NewUnit("tu5", "other", "Hello 'world'", "Hello 'world'", nil),
		event.NewUnit("tu6", "blank", "  ", "  ", nil),
	}
	st := Apply(units, po)

	if st.Total != 4 || st.Translated != 3 || st.Missing != 1 {
		t.Fatalf("Stats = %+v, want total 4, translated 3, missing 1", st)
	}
	if st.Percent() != 75 {
		t.Fatalf("Percent() = %d, want 75", st.Percent())
	}

	want := map[string]string{
		"tu1": "Bonjour 'monde'",
		"tu2": "%d éléments",
		"tu4": "Sans nom",
	}
	for _, tu := range units {
		target, ok := tu.Target()
		if w, expected := want[tu.ID]; expected {
			if !ok || target != w {
				t.Fatalf("%s target = %q (%v), want %q", tu.ID, target, ok, w)
			}
			continue
		}
		if ok {
			t.Fatalf("%s should stay untranslated, got %q", tu.ID, target)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.po")); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
	if (Stats{}).Percent() != 0 {
		t.Fatal("Percent of an empty run should be 0")
	}
}
