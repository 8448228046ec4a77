package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/curiousdates/internal/datasource"
	"github.com/vanderheijden86/curiousdates/pkg/admin"
	"github.com/vanderheijden86/curiousdates/pkg/config"
	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/genai"
	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
	"github.com/vanderheijden86/curiousdates/pkg/ui"
	"github.com/vanderheijden86/curiousdates/pkg/version"
	"github.com/vanderheijden86/curiousdates/pkg/watcher"
)

type cliFlags struct {
	data       string
	configPath string
	help       bool
	version    bool

	robotRelated   string
	robotParallels string
	robotNetwork   bool
	robotSearch    string
	limit          int

	exportMD  string
	exportSVG string
	output    string

	noWatch  bool
	noHooks  bool
	dumpSeed bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, *flag.FlagSet, error) {
	var f cliFlags
	fs := flag.NewFlagSet("cdv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.data, "data", "", "Timeline file (.json, .jsonl, .yaml) or directory; default is the built-in seed")
	fs.StringVar(&f.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/cdv/config.yaml)")
	fs.BoolVar(&f.help, "help", false, "Show help")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.StringVar(&f.robotRelated, "robot-related", "", "Print related events for an event id as JSON")
	fs.StringVar(&f.robotParallels, "robot-parallels", "", "Print parallel events for an event id as JSON")
	fs.BoolVar(&f.robotNetwork, "robot-network", false, "Print the cross-timeline network as JSON")
	fs.StringVar(&f.robotSearch, "robot-search", "", "Search events by keyword and meaning, print hits as JSON")
	fs.IntVar(&f.limit, "limit", 10, "Maximum hits for --robot-search")
	fs.StringVar(&f.exportMD, "export-md", "", "Export a timeline as Markdown")
	fs.StringVar(&f.exportSVG, "export-svg", "", "Export a timeline as SVG")
	fs.StringVar(&f.output, "o", "", "Output file for exports (default stdout)")
	fs.BoolVar(&f.noHooks, "no-hooks", false, "Skip export hooks from hooks.yaml")
	fs.BoolVar(&f.noWatch, "no-watch", false, "Do not reload when the timelines change on disk")
	fs.BoolVar(&f.dumpSeed, "dump-seed", false, "Print the built-in seed timelines as JSON")
	err := fs.Parse(args)
	return f, fs, err
}

func (f cliFlags) exportRequest(timelineID string, format exportFormat) exportRequest {
	req := exportRequest{timelineID: timelineID, format: format, output: f.output, noHooks: f.noHooks}
	// hooks.yaml sits next to an explicit config file.
	if f.configPath != "" {
		req.hooksDir = filepath.Dir(f.configPath)
	}
	return req
}

func (f cliFlags) robotMode() bool {
	return f.robotRelated != "" || f.robotParallels != "" || f.robotNetwork || f.robotSearch != ""
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes cdv and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if f.help {
		fmt.Fprintln(stdout, "Usage: cdv [options]")
		fmt.Fprintln(stdout, "\nExplore historical timelines, travel between events and find what happened meanwhile.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if f.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	if f.dumpSeed {
		if _, err := stdout.Write(loader.SeedJSON()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if debug.Enabled() {
		defer logMetrics()
	}

	// Robot output must stay clean JSON on stdout.
	if f.robotMode() {
		_ = os.Setenv("CDV_ROBOT", "1")
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	dataPath := f.data
	if dataPath == "" {
		dataPath = cfg.Data.TimelinesPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Robot and export modes read curated data only; the library belongs to
	// the interactive session.
	if f.robotMode() || f.exportMD != "" || f.exportSVG != "" {
		ws, err := loader.Load(ctx, dataPath, loader.Options{})
		if err != nil {
			fmt.Fprintf(stderr, "Error loading timelines: %v\n", err)
			return 1
		}
		return runBatch(ctx, f, cfg, ws, stdout, stderr)
	}

	return runInteractive(ctx, cfg, dataPath, f.noWatch, stderr)
}

// logMetrics dumps the timings and counters gathered during the run.
func logMetrics() {
	debug.Section("metrics")
	for _, s := range metrics.AllTimingStats() {
		if s.Count > 0 {
			debug.Log("%s: n=%d avg=%.2fms max=%.2fms", s.Name, s.Count, s.AvgMs, s.MaxMs)
		}
	}
	for _, c := range metrics.AllCounterValues() {
		debug.Log("%s: %d", c.Name, c.Value)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runBatch(ctx context.Context, f cliFlags, cfg config.Config, ws model.WorkingSet, stdout, stderr io.Writer) int {
	var err error
	switch {
	case f.robotRelated != "":
		err = writeRobotRelated(stdout, ws, f.robotRelated)
	case f.robotParallels != "":
		err = writeRobotParallels(stdout, ws, f.robotParallels)
	case f.robotNetwork:
		err = writeRobotNetwork(stdout, ws)
	case f.robotSearch != "":
		err = writeRobotSearch(ctx, stdout, stderr, ws, cfg, f.robotSearch, f.limit)
	case f.exportMD != "":
		err = exportTimeline(stdout, stderr, ws, f.exportRequest(f.exportMD, formatMarkdown))
	case f.exportSVG != "":
		err = exportTimeline(stdout, stderr, ws, f.exportRequest(f.exportSVG, formatSVG))
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runInteractive(ctx context.Context, cfg config.Config, dataPath string, noWatch bool, stderr io.Writer) int {
	var lib *datasource.Library
	if cfg.Data.LibraryPath != "" {
		var err error
		lib, err = datasource.Open(cfg.Data.LibraryPath)
		if err != nil {
			// Non-fatal: generated timelines just won't persist.
			fmt.Fprintf(stderr, "Warning: timeline library unavailable: %v\n", err)
			lib = nil
		} else {
			defer lib.Close()
		}
	}

	ws, err := datasource.LoadWorkingSet(ctx, dataPath, lib, loader.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "Error loading timelines: %v\n", err)
		return 1
	}
	if len(ws) == 0 {
		fmt.Fprintln(stderr, "No timelines found. Run 'cdv --dump-seed > timelines.json' for a starting point.")
		return 1
	}

	store, err := openAdminStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: admin state not persisted: %v\n", err)
	}
	defer store.Close()

	var ai *genai.Service
	backend, err := genai.NewOllamaBackend(cfg.AI.OllamaURL, cfg.AI.Model, cfg.AITimeout())
	if err != nil {
		fmt.Fprintf(stderr, "Warning: AI features disabled: %v\n", err)
	} else {
		ai = genai.NewService(backend, store, aiOptions(cfg, stderr)...)
		if debug.Enabled() {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			debug.Log("ollama model check: %v", backend.CheckModel(checkCtx))
			cancel()
		}
	}

	var w *watcher.Watcher
	if dataPath != "" && cfg.Data.Watch && !noWatch {
		w, err = watcher.NewWatcher(dataPath, watcher.WithFilter(loader.IsTimelineFile))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			fmt.Fprintf(stderr, "Warning: live reload disabled: %v\n", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.NewModel(ui.Options{
		Config:     cfg,
		WorkingSet: ws,
		DataPath:   dataPath,
		AI:         ai,
		Admin:      store,
		Library:    lib,
		Watcher:    w,
		Context:    ctx,
	})

	if err := runTUIProgram(ctx, m); err != nil {
		fmt.Fprintf(stderr, "Error running cdv: %v\n", err)
		return 1
	}
	return 0
}

// openAdminStore opens the persisted admin state, falling back to memory.
func openAdminStore(cfg config.Config) (admin.Store, error) {
	password := cfg.Admin.Password
	if password == "" {
		password = admin.DefaultPassword
	}
	if cfg.Admin.StatePath == "" {
		return admin.NewMemoryStore(password), nil
	}
	store, err := admin.OpenSQLiteStore(cfg.Admin.StatePath, password)
	if err != nil {
		return admin.NewMemoryStore(password), err
	}
	return store, nil
}

// aiOptions builds the generative service options from cfg. A bad image URL
// only costs the pictures.
func aiOptions(cfg config.Config, stderr io.Writer) []genai.Option {
	opts := []genai.Option{genai.WithMaxFailures(cfg.AI.MaxFailures)}
	if cfg.AI.ImageURL == "" {
		return opts
	}
	src, err := genai.NewHTTPImageSource(cfg.AI.ImageURL, cfg.AI.ImageModel, cfg.AITimeout())
	if err != nil {
		fmt.Fprintf(stderr, "Warning: event images disabled: %v\n", err)
		return opts
	}
	return append(opts, genai.WithImageSource(src))
}

func runTUIProgram(ctx context.Context, m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM: ask nicely, then kill.
	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	// Optional auto-quit for automated tests: set CDV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CDV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
