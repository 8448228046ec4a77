// Package loader reads timelines from disk into a model.WorkingSet.
//
// Supported formats, chosen by extension:
//   - .json   an array of timelines or a single timeline object
//   - .jsonl  one timeline per line
//   - .yaml / .yml  a list of timelines or a single timeline
//
// Malformed or invalid timelines are skipped with a warning instead of
// failing the whole load, so one broken file never hides the rest.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// DefaultMaxBufferSize is the largest JSONL line accepted (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported timeline file format")

// Options configures loading.
type Options struct {
	// WarningHandler receives non-fatal problems (malformed lines, invalid
	// timelines, duplicate ids). If nil, warnings go to stderr unless
	// CDV_ROBOT=1.
	WarningHandler func(string)

	// BufferSize caps a single JSONL line. 0 means DefaultMaxBufferSize.
	BufferSize int
}

func (o Options) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv("CDV_ROBOT") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// IsTimelineFile reports whether path has a supported extension.
func IsTimelineFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".yaml", ".yml":
		return true
	}
	return false
}

// Load resolves path to a working set: empty path means the built-in seed,
// a directory is loaded with LoadDir and anything else with LoadFile.
func Load(ctx context.Context, path string, opts Options) (model.WorkingSet, error) {
	if path == "" {
		return Seed(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("timelines path: %w", err)
	}
	if info.IsDir() {
		return LoadDir(ctx, path, opts)
	}
	return LoadFile(path, opts)
}

// LoadFile reads one timeline file.
func LoadFile(path string, opts Options) (model.WorkingSet, error) {
	defer metrics.Timer(metrics.TimelineLoad)()
	defer debug.LogEnterExit("loader.LoadFile " + path)()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open timelines file: %w", err)
	}
	defer f.Close()

	var ws model.WorkingSet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl":
		ws, err = ParseJSONL(f, opts)
	case ".json":
		ws, err = ParseJSON(f, opts)
	case ".yaml", ".yml":
		ws, err = ParseYAML(f, opts)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Dedupe(ws, opts), nil
}

// ParseJSONL parses one timeline per line. A UTF-8 BOM on the first line is
// stripped, blank lines are ignored and malformed lines are skipped.
func ParseJSONL(r io.Reader, opts Options) (model.WorkingSet, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)
	warn := opts.warn()

	var ws model.WorkingSet
	for lineNum := 1; ; lineNum++ {
		line, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading timelines at line %d: %w", lineNum, err)
		}
		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}
		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var tl model.Timeline
		if err := json.Unmarshal(line, &tl); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if keep(tl, fmt.Sprintf("line %d", lineNum), warn) {
			ws = append(ws, tl)
		}
	}
	return ws, nil
}

// ParseJSON parses either an array of timelines or one timeline object.
func ParseJSON(r io.Reader, opts Options) (model.WorkingSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading timelines: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, nil
	}

	var raw []model.Timeline
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing timelines: %w", err)
		}
	} else {
		var one model.Timeline
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("parsing timeline: %w", err)
		}
		raw = []model.Timeline{one}
	}
	return filterValid(raw, opts.warn()), nil
}

// ParseYAML parses a YAML list of timelines or a single timeline mapping.
func ParseYAML(r io.Reader, opts Options) (model.WorkingSet, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing timelines: %w", err)
	}

	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		doc = doc.Content[0]
	}

	var raw []model.Timeline
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing timelines: %w", err)
		}
	case yaml.MappingNode:
		var one model.Timeline
		if err := doc.Decode(&one); err != nil {
			return nil, fmt.Errorf("parsing timeline: %w", err)
		}
		raw = []model.Timeline{one}
	default:
		return nil, fmt.Errorf("parsing timelines: expected a list or a mapping")
	}
	return filterValid(raw, opts.warn()), nil
}

func filterValid(raw []model.Timeline, warn func(string)) model.WorkingSet {
	ws := make(model.WorkingSet, 0, len(raw))
	for i, tl := range raw {
		if keep(tl, fmt.Sprintf("entry %d", i+1), warn) {
			ws = append(ws, tl)
		}
	}
	return ws
}

func keep(tl model.Timeline, where string, warn func(string)) bool {
	if err := tl.Validate(); err != nil {
		warn(fmt.Sprintf("skipping invalid timeline at %s: %v", where, err))
		return false
	}
	return true
}

// Dedupe drops timelines that reuse a timeline id or any event id already
// seen earlier in ws. Event ids are cross-referenced between timelines, so a
// collision makes the later timeline unreachable by id and it is dropped whole.
func Dedupe(ws model.WorkingSet, opts Options) model.WorkingSet {
	warn := opts.warn()
	timelines := make(map[string]bool, len(ws))
	owner := make(map[string]string)
	out := make(model.WorkingSet, 0, len(ws))

	for _, tl := range ws {
		if timelines[tl.ID] {
			warn(fmt.Sprintf("skipping duplicate timeline id %q", tl.ID))
			continue
		}
		clash := ""
		for _, ev := range tl.Events {
			if prev, ok := owner[ev.ID]; ok {
				clash = fmt.Sprintf("event id %q already used by timeline %q", ev.ID, prev)
				break
			}
		}
		if clash != "" {
			warn(fmt.Sprintf("skipping timeline %q: %s", tl.ID, clash))
			continue
		}
		timelines[tl.ID] = true
		for _, ev := range tl.Events {
			owner[ev.ID] = tl.ID
		}
		out = append(out, tl)
	}
	return out
}

// stripBOM removes the UTF-8 Byte Order Mark if present.
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
