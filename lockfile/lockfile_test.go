package lockfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/xmlkit/event"
)

func unit(id, name, source string) *event.Unit {
	return event.NewUnit(id, name, source, source, nil)
}

func TestHashDeterministic(t *testing.T) {
	if Hash("hello world") != Hash("hello world") {
		t.Error("Hash not deterministic")
	}
	if Hash("hello world") == Hash("different") {
		t.Error("Hash collision")
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if lf.Summary() != "empty" {
		t.Errorf("Summary() = %q, want empty", lf.Summary())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lf.Update("res/values/strings.xml", "hello", "Hello")
	lf.Update("res/values/strings.xml", "bye", "Bye")
	lf.Update("Strings.resx", "Title", "Main window")
	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	docs, keys := lf2.Stats()
	if docs != 2 || keys != 3 {
		t.Errorf("Stats = %d docs, %d keys; want 2, 3", docs, keys)
	}
	if !reflect.DeepEqual(lf2.Documents(), []string{"Strings.resx", "res/values/strings.xml"}) {
		t.Errorf("Documents() = %v", lf2.Documents())
	}
	if !strings.Contains(lf2.Summary(), "2 documents, 3 keys") {
		t.Errorf("Summary() = %q", lf2.Summary())
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load of a corrupt lock file should fail")
	}
}

func TestIsChangedAndPrune(t *testing.T) {
	lf := &LockFile{Checksums: make(map[string]map[string]string)}
	if !lf.IsChanged("doc", "k", "v") {
		t.Error("new entry should be changed")
	}
	lf.Update("doc", "k", "v")
	if lf.IsChanged("doc", "k", "v") {
		t.Error("recorded entry should be unchanged")
	}
	if !lf.IsChanged("doc", "k", "v2") {
		t.Error("modified entry should be changed")
	}

	lf.Update("doc", "gone", "x")
	lf.Prune("doc", []string{"k"})
	if _, ok := lf.Checksums["doc"]["gone"]; ok {
		t.Error("Prune kept a stale key")
	}
	lf.RemoveDocument("doc")
	if docs, _ := lf.Stats(); docs != 0 {
		t.Errorf("documents after RemoveDocument = %d", docs)
	}
}

func TestDiffAndRecord(t *testing.T) {
	lf := &LockFile{Checksums: make(map[string]map[string]string)}
	doc := DocumentKey(filepath.Join("res", "values", "strings.xml"))

	first := []*event.Unit{unit("tu1", "hello", "Hello"), unit("tu2", "", "Loose")}
	if c := lf.Diff(doc, first); len(c.New) != 2 || c.Empty() {
		t.Fatalf("first Diff = %+v, want two new units", c)
	}
	lf.Record(doc, first)
	if c := lf.Diff(doc, first); !c.Empty() {
		t.Fatalf("Diff after Record = %+v, want empty", c)
	}

	second := []*event.Unit{unit("tu1", "hello", "Hello!"), unit("tu2", "bye", "Bye")}
	c := lf.Diff(doc, second)
	want := Changes{New: []string{"bye"}, Changed: []string{"hello"}, Removed: []string{"tu2"}}
	if !reflect.DeepEqual(c, want) {
		t.Fatalf("Diff = %+v, want %+v", c, want)
	}

	lf.Record(doc, second)
	if _, ok := lf.Checksums[doc]["tu2"]; ok {
		t.Fatal("Record should prune keys of removed units")
	}
}
