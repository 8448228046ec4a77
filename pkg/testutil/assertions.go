package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// AssertValidWorkingSet fails the test if ws does not validate.
func AssertValidWorkingSet(t *testing.T, ws model.WorkingSet) {
	t.Helper()
	if err := ws.Validate(); err != nil {
		t.Errorf("working set invalid: %v", err)
	}
}

// AssertEventCount verifies the total number of events.
func AssertEventCount(t *testing.T, ws model.WorkingSet, expected int) {
	t.Helper()
	if got := ws.EventCount(); got != expected {
		t.Errorf("expected %d events, got %d", expected, got)
	}
}

// AssertTimelineIDs verifies the timeline ids and their order.
func AssertTimelineIDs(t *testing.T, ws model.WorkingSet, expected ...string) {
	t.Helper()
	got := TimelineIDs(ws)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("timeline ids = %v, want %v", got, expected)
	}
}

// AssertJSONEqual compares two values by their JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile compares output against a file under testdata.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper. With GENERATE_GOLDEN set the
// file is rewritten instead of compared.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual against the golden file and reports the first
// differing line.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}

	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
}

// AssertJSON compares actual, encoded as indented JSON, against the file.
func (g *GoldenFile) AssertJSON(actual any) {
	g.t.Helper()
	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}
	g.Assert(string(data))
}

// WriteTimelinesFile writes ws to path as JSONL or, for .json paths, as a
// JSON array. Parent directories are created.
func WriteTimelinesFile(t *testing.T, path string, ws model.WorkingSet) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	var content []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var err error
		if content, err = json.MarshalIndent(ws, "", "  "); err != nil {
			t.Fatalf("failed to marshal timelines: %v", err)
		}
	} else {
		content = []byte(ToJSONL(ws))
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write timelines file: %v", err)
	}
	return path
}

// TimelineIDs returns the ids of ws in order.
func TimelineIDs(ws model.WorkingSet) []string {
	ids := make([]string, len(ws))
	for i, tl := range ws {
		ids[i] = tl.ID
	}
	return ids
}

// FindEvent returns the event with id, or nil.
func FindEvent(ws model.WorkingSet, id string) *model.TimelineEvent {
	if _, ev, ok := ws.Locate(id); ok {
		return &ev
	}
	return nil
}
