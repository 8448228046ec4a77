package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// MaxParallelLoads bounds concurrent file reads in LoadDir.
const MaxParallelLoads = 8

// FileResult is the outcome of loading one file in a directory.
type FileResult struct {
	Path      string
	Timelines model.WorkingSet
	Err       error

	warnings []string
}

// LoadDir loads every timeline file directly inside dir in parallel and
// merges the results in file-name order. A file that fails to load is
// reported as a warning; it only fails the call when no file loaded at all.
func LoadDir(ctx context.Context, dir string, opts Options) (model.WorkingSet, error) {
	results, err := LoadDirResults(ctx, dir, opts)
	if err != nil {
		return nil, err
	}

	warn := opts.warn()
	var merged model.WorkingSet
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			warn(fmt.Sprintf("skipping %s: %v", filepath.Base(r.Path), r.Err))
			continue
		}
		merged = append(merged, r.Timelines...)
	}
	if failures > 0 && failures == len(results) {
		return nil, fmt.Errorf("no timeline file in %s could be loaded", dir)
	}
	return Dedupe(merged, opts), nil
}

// LoadDirResults loads each file and returns the per-file results sorted by
// path. Only directory-level failures and context cancellation are returned as
// errors.
func LoadDirResults(ctx context.Context, dir string, opts Options) ([]FileResult, error) {
	defer debug.LogEnterExit("loader.LoadDir " + dir)()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read timelines directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsTimelineFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelLoads)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Warnings are collected per file and replayed in order below.
			var warnings []string
			fileOpts := opts
			fileOpts.WarningHandler = func(msg string) {
				warnings = append(warnings, msg)
			}
			ws, err := LoadFile(p, fileOpts)
			results[i] = FileResult{Path: p, Timelines: ws, Err: err}
			results[i].warnings = warnings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	warn := opts.warn()
	for _, r := range results {
		for _, w := range r.warnings {
			warn(filepath.Base(r.Path) + ": " + w)
		}
	}
	debug.Log("loaded %d timeline files from %s", len(paths), dir)
	return results, nil
}
