// xmlkit extracts translatable text from XML-family resources (generic XML,
// Android strings.xml, .NET RESX, Chromium XTB) into gettext templates and
// merges translated catalogues back into byte-faithful documents.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/minios-linux/xmlkit/config"
	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/extract"
	"github.com/minios-linux/xmlkit/i18n"
	"github.com/minios-linux/xmlkit/langmeta"
	"github.com/minios-linux/xmlkit/lockfile"
	"github.com/minios-linux/xmlkit/logging"
	"github.com/minios-linux/xmlkit/merge"
	"github.com/minios-linux/xmlkit/pofile"
	"github.com/minios-linux/xmlkit/profile"
	"github.com/minios-linux/xmlkit/writer"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir   string
	logLevel  string
	logFormat string
	workers   int
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xmlkit",
		Short: "Localization filter for XML resources",
		Long: `xmlkit: localization filter for XML-family resource files.

Extracts translatable text from XML documents into gettext templates and
writes translated documents back, preserving everything that is not text
byte for byte (declaration, encoding, BOM, line breaks, comments).

Profiles:
  xml                 Generic XML
  xml-AndroidStrings  Android strings.xml, arrays and plurals
  xml-resx            .NET RESX resources
  xml-xtb             Chromium XTB translation bundles

Commands:
  profiles    List filter profiles and their default parameters
  extract     Write POT templates from the project sources
  merge       Write translated documents from PO catalogues
  roundtrip   Check that documents survive extraction unchanged
  status      Show project info and translation statistics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setup()
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); default from XMLKIT_LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json); default from XMLKIT_LOG_FORMAT")
	root.PersistentFlags().IntVarP(&workers, "jobs", "j", 0, "Documents filtered in parallel (default: number of CPUs)")

	root.AddCommand(
		newProfilesCmd(),
		newExtractCmd(),
		newMergeCmd(),
		newRoundtripCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// setup loads .env before the logger reads its settings from the
// environment.
func setup() {
	_, envErr := config.LoadEnv(rootDir)

	opts := logging.FromEnv()
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	logging.Init(opts)
	i18n.Init("")

	if envErr != nil {
		logging.Get().Warn().Err(envErr).Msg("ignoring .env file")
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xmlkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// profiles
// ---------------------------------------------------------------------------

func newProfilesCmd() *cobra.Command {
	var showConfig string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List filter profiles",
		Long: `List the dialect profiles of the XML filter with the files they are
associated with. --config prints the default parameters of one profile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showConfig != "" {
				p, ok := profile.Lookup(showConfig)
				if !ok {
					return fmt.Errorf(i18n.T("unknown profile %q (valid: %s)"), showConfig, strings.Join(profile.IDs(), ", "))
				}
				data, err := profile.ConfigData(p)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			}

			fmt.Printf("%-20s %-18s %s\n", "ID", "Name", "Files")
			fmt.Println(strings.Repeat("─", 60))
			for _, p := range profile.All() {
				assoc := append(append([]string{}, p.FileNames...), p.Extensions...)
				fmt.Printf("%-20s %-18s %s\n", p.ID, p.Name, strings.Join(assoc, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&showConfig, "config", "", "Print the default parameters of a profile")
	return cmd
}

// ---------------------------------------------------------------------------
// Project loading shared by extract, merge and status
// ---------------------------------------------------------------------------

// scope narrows a run to some targets, languages or ad-hoc sources.
type scope struct {
	targets    []string
	langs      []string
	sources    []string
	profile    string
	encoding   string
	sourceLang string
}

func (s *scope) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.targets, "target", "t", nil, "Only process these targets from "+config.FileName)
	cmd.Flags().StringSliceVarP(&s.langs, "lang", "l", nil, "Only process these languages")
	cmd.Flags().StringVar(&s.profile, "profile", "", "Force a filter profile for ad-hoc sources")
	cmd.Flags().StringVar(&s.encoding, "encoding", "", "Declared input encoding (default: auto-detect)")
	cmd.Flags().StringVar(&s.sourceLang, "source-lang", "", "Source language (default from "+config.FileName+" or en)")
}

func loadProject(s scope) (*config.Project, []config.ResolvedTarget, error) {
	f, err := config.Load(rootDir)
	if err != nil {
		return nil, nil, err
	}
	proj := config.Detect(rootDir, f)
	if s.sourceLang != "" {
		proj.SourceLang = s.sourceLang
	}

	if f == nil || len(s.sources) > 0 {
		var langs []string
		if f != nil {
			langs = f.Languages
		}
		f = config.Default(proj.Name)
		t := &f.Targets[0]
		if len(s.sources) > 0 {
			t.Sources = s.sources
		}
		t.Profile = s.profile
		t.Encoding = s.encoding
		t.Languages = langs
	}

	resolved, err := f.Resolve(rootDir)
	if err != nil {
		return nil, nil, err
	}
	resolved, err = selectTargets(resolved, s.targets)
	if err != nil {
		return nil, nil, err
	}
	if len(s.langs) > 0 {
		for i := range resolved {
			if len(resolved[i].Languages) == 0 {
				resolved[i].Languages = s.langs
			} else {
				resolved[i].Languages = intersectLanguages(resolved[i].Languages, s.langs)
			}
		}
	}
	return proj, resolved, nil
}

func selectTargets(all []config.ResolvedTarget, names []string) ([]config.ResolvedTarget, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []config.ResolvedTarget
	for _, name := range names {
		found := false
		for _, rt := range all {
			if rt.Target.Name == strings.TrimSpace(name) {
				out = append(out, rt)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf(i18n.T("unknown target %q"), name)
		}
	}
	return out, nil
}

// intersectLanguages keeps the languages of available that filter names,
// in the order of filter.
func intersectLanguages(available, filter []string) []string {
	have := make(map[string]bool, len(available))
	for _, l := range available {
		have[l] = true
	}
	var out []string
	for _, l := range filter {
		l = strings.TrimSpace(l)
		if have[l] {
			out = append(out, l)
		}
	}
	return out
}

// targetDocuments filters every source document of a target. Documents
// that fail are logged and left out; the returned error counts them.
func targetDocuments(proj *config.Project, rt config.ResolvedTarget) ([]*extract.Result, error) {
	paths, err := rt.SourcePaths()
	if err != nil {
		return nil, err
	}
	files, err := extract.FindSources(paths)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, f := range files {
		if !rt.IsTranslation(f) {
			sources = append(sources, f)
		}
	}
	if len(sources) == 0 {
		return nil, nil
	}
	logInfo("%s: found %d %s (%s)", rt.Target.Name, len(sources),
		i18n.N("document", "documents", len(sources)), extract.DescribeFiles(sources))

	results, err := extract.Documents(context.Background(), sources, extract.Options{
		SourceLocale: proj.SourceLang,
		ProfileID:    rt.Target.Profile,
		Encoding:     rt.Target.Encoding,
		Overrides:    rt.Target.Params,
	}, workers)

	var docs []*extract.Result
	for _, res := range results {
		if res != nil {
			docs = append(docs, res)
		}
	}
	if err != nil {
		logError("%v", err)
		return docs, fmt.Errorf(i18n.T("%d documents could not be read"), len(results)-len(docs))
	}
	return docs, nil
}

func closeDocuments(docs []*extract.Result) {
	for _, d := range docs {
		d.Filter.Close()
	}
}

// relPath is path relative to root with forward slashes.
func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		s      scope
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "extract [paths...]",
		Short: "Write POT templates from XML sources",
		Long: `Filter every source document of each target and write its text units
to the target's POT template. Unit names become msgctxt, notes become
extracted comments. Paths given on the command line replace the
configured targets with one ad-hoc target.

The lock file records a checksum per unit so that changes since the last
extraction are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.sources = args
			return runExtract(s, dryRun)
		},
	}

	s.addFlags(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing files")
	return cmd
}

func runExtract(s scope, dryRun bool) error {
	proj, targets, err := loadProject(s)
	if err != nil {
		return err
	}
	lock, err := lockfile.Load(proj.Root)
	if err != nil {
		return err
	}

	var failed error
	seen := make(map[string]bool)
	for _, rt := range targets {
		docs, err := targetDocuments(proj, rt)
		if err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", rt.Target.Name, err))
		}
		if len(docs) == 0 {
			logWarning("%s: no documents found", rt.Target.Name)
			continue
		}

		pot := pofile.NewFile()
		pot.Header = pofile.MakeHeader(proj.Name, proj.Version, time.Now())
		units := 0
		for _, doc := range docs {
			rel := relPath(proj.Root, doc.Path)
			key := lockfile.DocumentKey(rel)
			seen[key] = true

			if c := lock.Diff(key, doc.Units); !c.Empty() {
				logInfo("%s: %d new, %d changed, %d removed", rel, len(c.New), len(c.Changed), len(c.Removed))
			}
			pofile.AddTextUnits(pot, doc.Units, rel)
			lock.Record(key, doc.Units)
			units += len(doc.Units)
		}
		closeDocuments(docs)

		if dryRun {
			logInfo("%s: %d units, %d template entries (dry run)", rt.Target.Name, units, len(pot.Entries))
			continue
		}
		if err := pot.WriteFile(rt.AbsPOTFile()); err != nil {
			return err
		}
		logSuccess("Extracted %d strings to %s", len(pot.Entries), relPath(proj.Root, rt.AbsPOTFile()))
	}

	if len(s.targets) == 0 && len(s.sources) == 0 {
		for _, d := range lock.Documents() {
			if !seen[d] {
				lock.RemoveDocument(d)
			}
		}
	}
	if !dryRun {
		if err := lock.Save(); err != nil {
			return err
		}
	}
	return failed
}

// ---------------------------------------------------------------------------
// merge
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var s scope

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Write translated documents from PO catalogues",
		Long: `For each target language, read <po_dir>/<lang>.po and write a translated
copy of every source document. Android resources go to values-<lang>
directories, other documents get the language before the extension
(Strings.fr.resx). Untranslated units keep their source markup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(s)
		},
	}

	s.addFlags(cmd)
	return cmd
}

func runMerge(s scope) error {
	proj, targets, err := loadProject(s)
	if err != nil {
		return err
	}

	var failed error
	for _, rt := range targets {
		if len(rt.Languages) == 0 {
			logWarning("%s: no languages configured or detected", rt.Target.Name)
			continue
		}
		docs, err := targetDocuments(proj, rt)
		if err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", rt.Target.Name, err))
		}

		for _, lang := range rt.Languages {
			poPath := rt.POPath(lang)
			if !fileExists(poPath) {
				logWarning("%s: %s not found, skipping", rt.Target.Name, relPath(proj.Root, poPath))
				continue
			}
			catalogue, err := merge.Load(poPath)
			if err != nil {
				failed = errors.Join(failed, err)
				continue
			}

			var total merge.Stats
			for _, doc := range docs {
				clearTargets(doc.Units)
				st := merge.Apply(doc.Units, catalogue)
				total.Total += st.Total
				total.Translated += st.Translated
				total.Missing += st.Missing

				out := rt.OutputPath(doc.Path, lang)
				if err := writeDocument(out, doc); err != nil {
					failed = errors.Join(failed, err)
					continue
				}
				logging.Get().Debug().Str("file", out).Int("translated", st.Translated).Msg("written")
			}
			logSuccess("%s [%s]: %d/%d translated (%d%%)", rt.Target.Name, lang, total.Translated, total.Total, total.Percent())
		}
		closeDocuments(docs)
	}
	return failed
}

func clearTargets(units []*event.Unit) {
	for _, tu := range units {
		tu.ClearTarget()
	}
}

func writeDocument(path string, doc *extract.Result) error {
	var buf bytes.Buffer
	if err := writer.New(&buf, doc.Filter.EncoderManager()).WriteAll(doc.Events); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ---------------------------------------------------------------------------
// roundtrip
// ---------------------------------------------------------------------------

func newRoundtripCmd() *cobra.Command {
	var s scope

	cmd := &cobra.Command{
		Use:   "roundtrip [paths...]",
		Short: "Check that documents are rewritten byte for byte",
		Long: `Filter each document and write it back without translations, then compare
the output with the input. Any difference is a filter defect or an input
the filter cannot represent faithfully.

The XML declaration is rebuilt rather than copied: it is always written with
double quotes, standalone="no" is dropped, and a declaration without an
encoding is left out. Documents written with single quotes, for example
<?xml version='1.0' encoding='utf-8'?>, are reported as different.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.sources = args
			return runRoundtrip(s)
		},
	}

	s.addFlags(cmd)
	return cmd
}

func runRoundtrip(s scope) error {
	proj, targets, err := loadProject(s)
	if err != nil {
		return err
	}

	checked, differ := 0, 0
	var failed error
	for _, rt := range targets {
		docs, err := targetDocuments(proj, rt)
		if err != nil {
			failed = errors.Join(failed, err)
		}
		for _, doc := range docs {
			checked++
			orig, err := os.ReadFile(doc.Path)
			if err != nil {
				failed = errors.Join(failed, err)
				continue
			}
			var buf bytes.Buffer
			if err := writer.New(&buf, doc.Filter.EncoderManager()).WriteAll(doc.Events); err != nil {
				failed = errors.Join(failed, fmt.Errorf("%s: %w", doc.Path, err))
				continue
			}
			if off := firstDiff(orig, buf.Bytes()); off >= 0 {
				differ++
				logError("%s: output differs at byte %d", relPath(proj.Root, doc.Path), off)
			}
		}
		closeDocuments(docs)
	}

	if differ > 0 {
		failed = errors.Join(failed, fmt.Errorf(i18n.T("%d of %d documents did not round-trip"), differ, checked))
	} else if checked > 0 {
		logSuccess("%d documents round-trip unchanged", checked)
	}
	return failed
}

// firstDiff returns the offset of the first differing byte, or -1.
func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

// ---------------------------------------------------------------------------
// status (read-only: project info + translation stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var s scope

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and translation statistics",
		Long: `Show the project, its targets and per-language translation progress.
Units changed since the last extraction are counted against the lock file.
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(s)
		},
	}

	s.addFlags(cmd)
	return cmd
}

func runStatus(s scope) error {
	proj, targets, err := loadProject(s)
	if err != nil {
		return err
	}
	lock, err := lockfile.Load(proj.Root)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Name:       %s\n", proj.Name)
	fmt.Fprintf(os.Stderr, "  Version:    %s\n", proj.Version)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.Root)
	fmt.Fprintf(os.Stderr, "  Source:     %s\n", langmeta.Resolve(proj.SourceLang).Label())
	if fileExists(filepath.Join(proj.Root, config.FileName)) {
		fmt.Fprintf(os.Stderr, "  Config:     %s\n", config.FileName)
	} else {
		fmt.Fprintf(os.Stderr, "  Config:     none (scanning the whole tree)\n")
	}
	fmt.Fprintf(os.Stderr, "  Lock:       %s\n", lock.Summary())
	fmt.Fprintln(os.Stderr)

	for _, rt := range targets {
		docs, err := targetDocuments(proj, rt)
		if err != nil {
			logWarning("%v", err)
		}
		showTargetStatus(proj, rt, lock, docs)
		closeDocuments(docs)
	}
	return nil
}

func showTargetStatus(proj *config.Project, rt config.ResolvedTarget, lock *lockfile.LockFile, docs []*extract.Result) {
	prof := rt.Target.Profile
	if prof == "" {
		prof = "auto"
	}
	fmt.Fprintf(os.Stderr, "%sTarget %s%s (%s)\n", colorBlue, rt.Target.Name, colorReset, prof)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	var units []*event.Unit
	var pending lockfile.Changes
	for _, doc := range docs {
		units = append(units, doc.Units...)
		c := lock.Diff(lockfile.DocumentKey(relPath(proj.Root, doc.Path)), doc.Units)
		pending.New = append(pending.New, c.New...)
		pending.Changed = append(pending.Changed, c.Changed...)
		pending.Removed = append(pending.Removed, c.Removed...)
	}
	fmt.Fprintf(os.Stderr, "  Documents:  %d\n", len(docs))
	fmt.Fprintf(os.Stderr, "  Units:      %d\n", len(units))
	fmt.Fprintf(os.Stderr, "  Template:   %s\n", relPath(proj.Root, rt.AbsPOTFile()))
	if !pending.Empty() {
		fmt.Fprintf(os.Stderr, "  Pending:    %d new, %d changed, %d removed (run 'xmlkit extract')\n",
			len(pending.New), len(pending.Changed), len(pending.Removed))
	}
	fmt.Fprintln(os.Stderr)

	if len(rt.Languages) == 0 {
		fmt.Fprintf(os.Stderr, "  Languages:  none detected\n\n")
		return
	}

	langs := append([]string{}, rt.Languages...)
	sort.Strings(langs)
	width := langColumnWidth(langs)
	for _, lang := range langs {
		poPath := rt.POPath(lang)
		if !fileExists(poPath) {
			fmt.Fprintf(os.Stderr, "  %s  missing\n", langCell(lang, width))
			continue
		}
		catalogue, err := merge.Load(poPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s  %v\n", langCell(lang, width), err)
			continue
		}
		clearTargets(units)
		st := merge.Apply(units, catalogue)
		fmt.Fprintf(os.Stderr, "  %s  %s  %d/%d\n", langCell(lang, width), progressBar(st.Percent(), 20), st.Translated, st.Total)
	}
	clearTargets(units)
	fmt.Fprintln(os.Stderr)
}

// progressBar renders percent as a colored bar followed by the number.
func progressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

func langColumnWidth(langs []string) int {
	w := 0
	for _, l := range langs {
		w = max(w, len(l))
	}
	return w
}

// langCell is the flag, the padded code and the native language name.
func langCell(lang string, width int) string {
	m := langmeta.Resolve(lang)
	flag := m.Flag
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s %-16s", flag, width, lang, m.Name)
}
