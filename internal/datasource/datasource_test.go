package datasource

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func generated(id string, eventIDs ...string) model.Timeline {
	t := model.Timeline{
		ID:          id,
		Title:       "Timeline " + id,
		Description: "generated",
		Category:    model.CategoryAlternate,
		IsGenerated: true,
	}
	for i, eid := range eventIDs {
		t.Events = append(t.Events, model.TimelineEvent{
			ID:    eid,
			Year:  []string{"1900", "1950", "2000"}[i%3],
			Title: "Event " + eid,
		})
	}
	return t
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(filepath.Join(t.TempDir(), "nested", "library.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { lib.Close() })

	// Deterministic, strictly increasing save times.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	lib.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return lib
}

func TestLibrary_RoundTripNewestFirst(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)

	for _, tl := range []model.Timeline{generated("a", "a1", "a2"), generated("b", "b1"), generated("c", "c1", "c2", "c3")} {
		if err := lib.Save(ctx, tl); err != nil {
			t.Fatalf("Save(%s): %v", tl.ID, err)
		}
	}

	ws, err := lib.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, tl := range ws {
		ids = append(ids, tl.ID)
		if !tl.IsGenerated {
			t.Errorf("%s: IsGenerated should be set on library timelines", tl.ID)
		}
	}
	if got := strings.Join(ids, ","); got != "c,b,a" {
		t.Errorf("List order = %s, want c,b,a", got)
	}

	c, err := lib.Get(ctx, "c")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Events) != 3 || c.Events[2].ID != "c3" || c.Category != model.CategoryAlternate {
		t.Errorf("Get(c) = %+v", c)
	}

	if n, err := lib.Count(ctx); err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func TestLibrary_SaveReplacesAndMovesToFront(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)

	_ = lib.Save(ctx, generated("a", "a1"))
	_ = lib.Save(ctx, generated("b", "b1"))

	updated := generated("a", "a1", "a2")
	updated.Title = "Renamed"
	if err := lib.Save(ctx, updated); err != nil {
		t.Fatal(err)
	}

	ws, _ := lib.List(ctx)
	if len(ws) != 2 || ws[0].ID != "a" || ws[0].Title != "Renamed" || len(ws[0].Events) != 2 {
		t.Errorf("after replace: %+v", ws)
	}
}

func TestLibrary_SaveRejectsInvalid(t *testing.T) {
	lib := openTestLibrary(t)
	bad := generated("x", "x1")
	bad.Category = "fantasy"
	if err := lib.Save(context.Background(), bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestLibrary_DeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)
	_ = lib.Save(ctx, generated("a", "a1"))

	if err := lib.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := lib.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if _, err := lib.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestLibrary_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")

	lib, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Save(ctx, generated("kept", "k1")); err != nil {
		t.Fatal(err)
	}
	lib.Close()

	again, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	ws, err := again.List(ctx)
	if err != nil || len(ws) != 1 || ws[0].ID != "kept" {
		t.Errorf("reopened List = %+v, %v", ws, err)
	}
}

func TestMerge(t *testing.T) {
	var warnings []string
	opts := loader.Options{WarningHandler: func(s string) { warnings = append(warnings, s) }}

	base := model.WorkingSet{generated("seed", "s1"), generated("shared", "old1")}
	library := model.WorkingSet{
		generated("new", "n1"),
		generated("shared", "sh1"),
		generated("clash", "s1"),
	}

	ws := Merge(library, base, opts)

	var ids []string
	for _, tl := range ws {
		ids = append(ids, tl.ID)
	}
	if got := strings.Join(ids, ","); got != "new,shared,clash" {
		t.Errorf("Merge order = %s, want new,shared,clash", got)
	}
	if shared, _ := ws.Find("shared"); shared.Events[0].ID != "sh1" {
		t.Error("library timeline should replace base timeline with the same id")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], `"seed"`) {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestLoadWorkingSet_SeedPlusLibrary(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)
	if err := lib.Save(ctx, generated("mine", "g1", "g2")); err != nil {
		t.Fatal(err)
	}

	ws, err := LoadWorkingSet(ctx, "", lib, loader.Options{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatal(err)
	}
	if ws[0].ID != "mine" {
		t.Errorf("first timeline = %s, want library timeline", ws[0].ID)
	}
	if len(ws) != len(loader.Seed())+1 {
		t.Errorf("len = %d, want seed+1", len(ws))
	}

	noLib, err := LoadWorkingSet(ctx, "", nil, loader.Options{})
	if err != nil || len(noLib) != len(loader.Seed()) {
		t.Errorf("without library: len=%d err=%v", len(noLib), err)
	}
}

func TestDiff(t *testing.T) {
	old := model.WorkingSet{generated("a", "a1"), generated("b", "b1"), generated("c", "c1")}
	changed := generated("b", "b1", "b2")
	updated := model.WorkingSet{generated("a", "a1"), changed, generated("d", "d1")}

	d := Diff(old, updated)
	if strings.Join(d.Added, ",") != "d" || strings.Join(d.Removed, ",") != "c" || strings.Join(d.Changed, ",") != "b" {
		t.Errorf("Diff = %+v", d)
	}
	if d.IsEmpty() {
		t.Error("diff should not be empty")
	}
	if got := d.Summary(); got != "reloaded: +1 -1 ~1 (3 timelines)" {
		t.Errorf("Summary = %q", got)
	}
	if !strings.Contains(d.Details(), "- d") {
		t.Errorf("Details missing added id:\n%s", d.Details())
	}

	same := Diff(old, old)
	if !same.IsEmpty() || same.Summary() != "reloaded: no changes (3 timelines)" {
		t.Errorf("identical sets: %+v %q", same, same.Summary())
	}
}
