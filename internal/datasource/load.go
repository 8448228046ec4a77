package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// Merge puts library timelines in front of base, newest library entry first.
// A library timeline replaces a base timeline with the same id. On an event
// id clash the earlier timeline wins and loader.Dedupe drops the later one,
// so library entries take precedence over curated ones.
func Merge(library, base model.WorkingSet, opts loader.Options) model.WorkingSet {
	ws := base
	for i := len(library) - 1; i >= 0; i-- {
		ws = ws.Prepend(library[i])
	}
	return loader.Dedupe(ws, opts)
}

// LoadWorkingSet loads the curated timelines at dataPath (the seed when
// empty) and, when lib is non-nil, merges the generated library in front.
// A library read failure is reported as a warning; the curated set is
// still returned.
func LoadWorkingSet(ctx context.Context, dataPath string, lib *Library, opts loader.Options) (model.WorkingSet, error) {
	base, err := loader.Load(ctx, dataPath, opts)
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return base, nil
	}

	generated, err := lib.List(ctx)
	if err != nil {
		warn := opts.WarningHandler
		if warn != nil {
			warn(fmt.Sprintf("library %s unavailable: %v", lib.Path(), err))
		}
		return base, nil
	}
	return Merge(generated, base, opts), nil
}
