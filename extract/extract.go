// Package extract finds XML-family resources on disk, routes each one to a
// dialect profile and runs the filter over it.
//
// The profile registry only enumerates dialects; matching a path to one is
// done here. Exact file names (strings.xml) win over extensions (.xml).
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/filter"
	"github.com/minios-linux/xmlkit/logging"
	"github.com/minios-linux/xmlkit/profile"
)

// skipDirs contains directory names to skip during scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".gradle":      true,
	"bin":          true,
	"obj":          true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// ProfileFor returns the profile associated with a path.
func ProfileFor(path string) (profile.Profile, bool) {
	base := strings.ToLower(filepath.Base(path))
	all := profile.All()
	for _, p := range all {
		for _, name := range p.FileNames {
			if base == strings.ToLower(name) {
				return p, true
			}
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range all {
		for _, e := range p.Extensions {
			if ext == e {
				return p, true
			}
		}
	}
	return profile.Profile{}, false
}

// FindSources recursively finds every file a profile is associated with.
// Common build and VCS directories are skipped.
func FindSources(dirs []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return err
				}
				return nil // skip unreadable entries
			}
			if d.IsDir() {
				if path != dir && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := ProfileFor(path); ok && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// FilesByProfile groups files by profile ID.
func FilesByProfile(files []string) map[string][]string {
	result := make(map[string][]string)
	for _, f := range files {
		if p, ok := ProfileFor(f); ok {
			result[p.ID] = append(result[p.ID], f)
		}
	}
	return result
}

// DescribeFiles returns a human-readable summary of the files found.
func DescribeFiles(files []string) string {
	byProfile := FilesByProfile(files)
	var ids []string
	for id := range byProfile {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var parts []string
	for _, id := range ids {
		p, _ := profile.Lookup(id)
		parts = append(parts, fmt.Sprintf("%d %s", len(byProfile[id]), p.Name))
	}
	return strings.Join(parts, ", ")
}

// Options configures a document run.
type Options struct {
	SourceLocale string
	// ProfileID forces a profile; empty routes by path.
	ProfileID string
	// Encoding is the declared input encoding; empty means auto.
	Encoding  string
	Overrides profile.Overrides
	Logger    *zerolog.Logger
}

// Result is one filtered document.
type Result struct {
	Path    string
	Profile profile.Profile
	Events  []*event.Event
	Units   []*event.Unit
	// Filter is kept open for its encoder manager and decision.
	Filter *filter.Filter
}

// Document filters the file at path.
func Document(path string, opts Options) (*Result, error) {
	id := opts.ProfileID
	if id == "" {
		p, ok := ProfileFor(path)
		if !ok {
			return nil, fmt.Errorf("%s: %w: no profile for this file type", path, filter.ErrConfiguration)
		}
		id = p.ID
	}

	log := logging.Named("extract")
	if opts.Logger != nil {
		log = *opts.Logger
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.WithStack(fmt.Errorf("%w: %w", filter.ErrIO, err))
	}
	defer fh.Close()

	f := filter.New(filter.WithLogger(log), filter.WithParams(opts.Overrides))
	err = f.Open(filter.Input{
		Reader:       fh,
		Name:         filepath.ToSlash(path),
		SourceLocale: opts.SourceLocale,
		Encoding:     opts.Encoding,
		ProfileID:    id,
	})
	if err != nil {
		log.Debug().Stack().Err(err).Str("file", path).Msg("document rejected")
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	events, err := f.Events()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := &Result{Path: path, Profile: f.Profile(), Events: events, Filter: f}
	for _, ev := range events {
		if ev.Type == event.TextUnit {
			res.Units = append(res.Units, ev.TextUnit)
		}
	}
	log.Debug().Str("file", path).Str("profile", id).Int("units", len(res.Units)).Msg("extracted")
	return res, nil
}

// Documents filters paths with at most workers documents open at a time
// (GOMAXPROCS when workers < 1). Results keep the order of paths; a
// document that fails leaves a nil slot and its error is joined into the
// returned error without stopping the others.
func Documents(ctx context.Context, paths []string, opts Options, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = Document(path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
