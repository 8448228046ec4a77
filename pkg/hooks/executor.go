package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
)

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs the hooks of a Config for one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []Result
}

// NewExecutor creates an executor for cfg.
func NewExecutor(cfg *Config, ctx ExportContext) *Executor {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Executor{config: cfg, context: ctx}
}

// RunHooks loads hooks.yaml from configDir (empty = default) and returns an
// executor, or nil when disabled or nothing is configured.
func RunHooks(configDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	var opts []LoaderOption
	if configDir != "" {
		opts = append(opts, WithConfigDir(configDir))
	}
	l := NewLoader(opts...)
	if err := l.Load(); err != nil {
		return nil, err
	}
	for _, w := range l.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !l.HasHooks() {
		return nil, nil
	}
	return NewExecutor(l.Config(), ctx), nil
}

// RunPreExport runs pre-export hooks and stops at the first failing hook
// whose on_error is "fail".
func (e *Executor) RunPreExport() error {
	for _, h := range e.config.Hooks.PreExport {
		r := e.run(h, PreExport)
		if !r.Success && h.OnError == "fail" {
			return fmt.Errorf("pre-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook and reports the first failure
// whose on_error is "fail".
func (e *Executor) RunPostExport() error {
	var firstErr error
	for _, h := range e.config.Hooks.PostExport {
		r := e.run(h, PostExport)
		if !r.Success && h.OnError == "fail" && firstErr == nil {
			firstErr = fmt.Errorf("post-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return firstErr
}

func (e *Executor) run(h Hook, phase HookPhase) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't wait on grandchildren holding the pipes after a timeout.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.Error = fmt.Errorf("timed out after %v", timeout)
	case err != nil:
		r.Error = err
		if r.Stderr != "" {
			r.Error = fmt.Errorf("%w: %s", err, truncate(r.Stderr, 200))
		}
	default:
		r.Success = true
	}
	debug.Log("hook %s (%s): success=%v in %v", h.Name, phase, r.Success, r.Duration)
	e.results = append(e.results, r)
	return r
}

// Results returns every hook run so far.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary is a one-line report, e.g. "hooks: 2 succeeded, 1 failed (notify)".
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok int
	var failed []string
	for _, r := range e.results {
		if r.Success {
			ok++
		} else {
			failed = append(failed, r.Hook.Name)
		}
	}
	s := fmt.Sprintf("hooks: %d succeeded, %d failed", ok, len(failed))
	if len(failed) > 0 {
		s += " (" + strings.Join(failed, ", ") + ")"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
