package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/export"
	"github.com/vanderheijden86/curiousdates/pkg/hooks"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

type robotEventRef struct {
	TimelineID    string              `json:"timeline_id"`
	TimelineTitle string              `json:"timeline_title"`
	Event         model.TimelineEvent `json:"event"`
}

type robotRelatedItem struct {
	robotEventRef
	Score       float64  `json:"score"`
	SharedWords []string `json:"shared_words"`
	Explanation string   `json:"explanation"`
}

type robotRelatedOutput struct {
	GeneratedAt string             `json:"generated_at"`
	Source      robotEventRef      `json:"source"`
	Related     []robotRelatedItem `json:"related"`
}

type robotParallelItem struct {
	robotEventRef
	YearDistance int `json:"year_distance"`
}

type robotParallelsOutput struct {
	GeneratedAt string              `json:"generated_at"`
	Source      robotEventRef       `json:"source"`
	Year        int                 `json:"year"`
	Threshold   float64             `json:"threshold_years"`
	Parallels   []robotParallelItem `json:"parallels"`
}

type robotNetworkOutput struct {
	GeneratedAt string `json:"generated_at"`
	correlation.Report
}

// now is overridden in tests.
var now = time.Now

func writeRobotJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func locate(ws model.WorkingSet, eventID string) (robotEventRef, error) {
	tl, ev, ok := ws.Locate(eventID)
	if !ok {
		return robotEventRef{}, fmt.Errorf("event %q not found", eventID)
	}
	return robotEventRef{TimelineID: tl.ID, TimelineTitle: tl.Title, Event: ev}, nil
}

func writeRobotRelated(w io.Writer, ws model.WorkingSet, eventID string) error {
	src, err := locate(ws, eventID)
	if err != nil {
		return err
	}
	out := robotRelatedOutput{
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Source:      src,
		Related:     []robotRelatedItem{},
	}
	for _, r := range correlation.FindRelated(src.Event, src.TimelineID, ws) {
		out.Related = append(out.Related, robotRelatedItem{
			robotEventRef: robotEventRef{TimelineID: r.TimelineID(), TimelineTitle: r.Timeline.Title, Event: r.Event},
			Score:         r.Score,
			SharedWords:   correlation.SharedWords(src.Event, r.Event),
			Explanation:   correlation.Explain(r, src.Event, src.TimelineID),
		})
	}
	return writeRobotJSON(w, out)
}

func writeRobotParallels(w io.Writer, ws model.WorkingSet, eventID string) error {
	src, err := locate(ws, eventID)
	if err != nil {
		return err
	}
	year := chrono.ParseYear(src.Event.Year)
	out := robotParallelsOutput{
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Source:      src,
		Year:        year,
		Threshold:   correlation.Threshold(year),
		Parallels:   []robotParallelItem{},
	}
	for _, p := range correlation.FindParallels(src.Event, src.TimelineID, ws) {
		out.Parallels = append(out.Parallels, robotParallelItem{
			robotEventRef: robotEventRef{TimelineID: p.TimelineID(), TimelineTitle: p.Timeline.Title, Event: p.Event},
			YearDistance:  chrono.Distance(chrono.ParseYear(p.Event.Year), year),
		})
	}
	return writeRobotJSON(w, out)
}

func writeRobotNetwork(w io.Writer, ws model.WorkingSet) error {
	return writeRobotJSON(w, robotNetworkOutput{
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Report:      correlation.BuildNetwork(ws).Report(),
	})
}

type exportFormat int

const (
	formatMarkdown exportFormat = iota
	formatSVG
)

var errSVGToTerminal = errors.New("refusing to write SVG to a terminal; use -o <file> or redirect stdout")

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type exportRequest struct {
	timelineID string
	format     exportFormat
	output     string
	hooksDir   string // directory holding hooks.yaml; empty = default
	noHooks    bool
}

func (f exportFormat) String() string {
	if f == formatSVG {
		return "svg"
	}
	return "markdown"
}

// exportTimeline renders the requested timeline to req.output, or to stdout
// when no output is set. Hooks only run for file exports.
func exportTimeline(stdout, stderr io.Writer, ws model.WorkingSet, req exportRequest) (err error) {
	tl, ok := ws.Find(req.timelineID)
	if !ok {
		return fmt.Errorf("timeline %q not found", req.timelineID)
	}

	if req.output == "" {
		if req.format == formatSVG && isTerminal(stdout) {
			return errSVGToTerminal
		}
		return render(stdout, tl, ws, req.format)
	}

	executor, err := hooks.RunHooks(req.hooksDir, hooks.ExportContext{
		ExportPath:   req.output,
		ExportFormat: req.format.String(),
		TimelineID:   tl.ID,
		EventCount:   len(tl.Events),
		Timestamp:    now(),
	}, req.noHooks)
	if err != nil {
		return err
	}
	if executor != nil {
		if err := executor.RunPreExport(); err != nil {
			return err
		}
	}

	if err := writeFile(req.output, func(w io.Writer) error { return render(w, tl, ws, req.format) }); err != nil {
		return err
	}

	if executor != nil {
		if err := executor.RunPostExport(); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		fmt.Fprintln(stderr, executor.Summary())
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func render(w io.Writer, tl model.Timeline, ws model.WorkingSet, format exportFormat) error {
	if format == formatSVG {
		return export.SVG(w, tl, ws, export.SVGOptions{})
	}
	return export.Markdown(w, tl, ws, export.MarkdownOptions{Now: now})
}
