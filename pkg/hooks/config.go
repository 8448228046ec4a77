// Package hooks runs user commands around cdv exports.
// Hooks are configured in $XDG_CONFIG_HOME/cdv/hooks.yaml and run before
// (pre-export) and after (post-export) a timeline is written to a file.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/curiousdates/pkg/config"
)

// HookPhase says when a hook runs.
type HookPhase string

const (
	// PreExport runs before the file is written. Failure cancels the export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after the file is written. Failure is reported only.
	PostExport HookPhase = "post-export"
)

// Hook is a single shell command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue"
}

// Config holds all hooks.
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase groups hooks by phase.
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// ExportContext describes the export; hooks see it as environment variables.
type ExportContext struct {
	ExportPath   string    // CDV_EXPORT_PATH
	ExportFormat string    // CDV_EXPORT_FORMAT: markdown or svg
	TimelineID   string    // CDV_TIMELINE_ID
	EventCount   int       // CDV_EVENT_COUNT
	Timestamp    time.Time // CDV_TIMESTAMP (RFC3339)
}

// ToEnv converts the context to KEY=value pairs.
func (c ExportContext) ToEnv() []string {
	return []string{
		"CDV_EXPORT_PATH=" + c.ExportPath,
		"CDV_EXPORT_FORMAT=" + c.ExportFormat,
		"CDV_TIMELINE_ID=" + c.TimelineID,
		fmt.Sprintf("CDV_EVENT_COUNT=%d", c.EventCount),
		"CDV_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout applies to hooks without a timeout.
const DefaultTimeout = 30 * time.Second

// FileName is the hooks file inside the config directory.
const FileName = "hooks.yaml"

// Loader reads hooks.yaml.
type Loader struct {
	configDir string
	config    *Config
	warnings  []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigDir overrides the directory holding hooks.yaml.
func WithConfigDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.configDir = dir
	}
}

// NewLoader creates a loader; the default directory is config.ConfigDir().
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.configDir == "" {
		l.configDir = config.ConfigDir()
	}
	return l
}

// Path returns the hooks file location.
func (l *Loader) Path() string {
	return filepath.Join(l.configDir, FileName)
}

// Load reads the hooks file. A missing file means no hooks.
func (l *Loader) Load() error {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", l.Path(), err)
	}

	cfg.Hooks.PreExport, l.warnings = normalizeHooks(cfg.Hooks.PreExport, PreExport, l.warnings)
	cfg.Hooks.PostExport, l.warnings = normalizeHooks(cfg.Hooks.PostExport, PostExport, l.warnings)
	l.config = &cfg
	return nil
}

// normalizeHooks applies defaults and drops hooks without a command.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		if hook.OnError == "" {
			if phase == PreExport {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (empty if not loaded).
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks reports whether any hook is configured.
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreExport) > 0 || len(l.config.Hooks.PostExport) > 0
}

// GetHooks returns the hooks of one phase.
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return l.config.Hooks.PreExport
	case PostExport:
		return l.config.Hooks.PostExport
	default:
		return nil
	}
}

// Warnings returns problems found while loading.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or plain seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Mirrors Hook except Timeout.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}
	return nil
}
