// Package config handles loading and saving cdv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/cdv/config.yaml
//   - Data:    ~/.local/share/cdv/ (library.db with generated timelines)
//   - State:   ~/.local/state/cdv/ (admin.db with pause flag and usage log)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "cdv"

// DataConfig controls where timelines come from.
type DataConfig struct {
	TimelinesPath string `yaml:"timelines_path,omitempty"` // file or directory; empty = built-in seed
	LibraryPath   string `yaml:"library_path,omitempty"`   // SQLite library of generated timelines
	Watch         bool   `yaml:"watch"`                    // reload when TimelinesPath changes
}

// NavigatorConfig tunes the travel animation.
type NavigatorConfig struct {
	FrameIntervalMs int  `yaml:"frame_interval_ms,omitempty"`
	Enabled         bool `yaml:"enabled"` // false commits selections without animating
}

// AIConfig points the generative features at an Ollama server.
type AIConfig struct {
	OllamaURL      string `yaml:"ollama_url,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	MaxFailures    int    `yaml:"max_failures,omitempty"` // consecutive failures before the breaker opens
	// ImageURL is an OpenAI-compatible images server. Empty means placeholder
	// pictures only.
	ImageURL   string `yaml:"image_url,omitempty"`
	ImageModel string `yaml:"image_model,omitempty"`
}

// AdminConfig holds the admin panel settings.
type AdminConfig struct {
	Password  string `yaml:"password,omitempty"`
	StatePath string `yaml:"state_path,omitempty"`
}

// SearchConfig selects how events are embedded for --robot-search.
type SearchConfig struct {
	Embedder       string  `yaml:"embedder,omitempty"` // hash (default) or ollama
	Model          string  `yaml:"model,omitempty"`    // ollama embedding model
	Dim            int     `yaml:"dim,omitempty"`      // hash embedder dimension
	IndexPath      string  `yaml:"index_path,omitempty"`
	SemanticWeight float64 `yaml:"semantic_weight,omitempty"` // 0..1, remainder is keyword overlap
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Theme          string `yaml:"theme,omitempty"` // dark, light
	ShowGapMarkers bool   `yaml:"show_gap_markers"`
}

// Config is the top-level configuration for cdv.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Navigator NavigatorConfig `yaml:"navigator"`
	AI        AIConfig        `yaml:"ai"`
	Admin     AdminConfig     `yaml:"admin"`
	Search    SearchConfig    `yaml:"search"`
	UI        UIConfig        `yaml:"ui"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			LibraryPath: filepath.Join(DataDir(), "library.db"),
			Watch:       true,
		},
		Navigator: NavigatorConfig{
			FrameIntervalMs: 16,
			Enabled:         true,
		},
		AI: AIConfig{
			OllamaURL:      "http://127.0.0.1:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 60,
			MaxFailures:    3,
		},
		Admin: AdminConfig{
			Password:  "admin123",
			StatePath: filepath.Join(StateDir(), "admin.db"),
		},
		Search: SearchConfig{
			Embedder:       "hash",
			Model:          "nomic-embed-text",
			Dim:            384,
			IndexPath:      filepath.Join(DataDir(), "events.idx"),
			SemanticWeight: 0.6,
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowGapMarkers: true,
		},
	}
}

// FrameInterval returns the navigator frame interval as a duration.
func (c Config) FrameInterval() time.Duration {
	if c.Navigator.FrameIntervalMs <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.Navigator.FrameIntervalMs) * time.Millisecond
}

// AITimeout returns the per-request AI timeout.
func (c Config) AITimeout() time.Duration {
	if c.AI.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var problems []string
	if c.Navigator.FrameIntervalMs < 0 {
		problems = append(problems, "navigator.frame_interval_ms must not be negative")
	}
	if c.AI.MaxFailures < 0 {
		problems = append(problems, "ai.max_failures must not be negative")
	}
	if u := c.AI.ImageURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		problems = append(problems, fmt.Sprintf("ai.image_url must be an http(s) url, got %q", u))
	}
	switch c.Search.Embedder {
	case "", "hash", "ollama":
	default:
		problems = append(problems, fmt.Sprintf("search.embedder must be hash or ollama, got %q", c.Search.Embedder))
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		problems = append(problems, "search.semantic_weight must be between 0 and 1")
	}
	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		problems = append(problems, fmt.Sprintf("ui.theme must be dark or light, got %q", c.UI.Theme))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigDir returns the XDG config directory for cdv.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// DataDir returns the XDG data directory for cdv.
func DataDir() string { return xdgDir("XDG_DATA_HOME", ".local", "share") }

// StateDir returns the XDG state directory for cdv.
func StateDir() string { return xdgDir("XDG_STATE_HOME", ".local", "state") }

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig (plus environment overrides) if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. A missing file is not an error.
// Environment variables CDV_OLLAMA_URL, CDV_MODEL and CDV_ADMIN_PASSWORD
// override the file.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	cfg.Data.TimelinesPath = expandHome(cfg.Data.TimelinesPath)
	cfg.Data.LibraryPath = expandHome(cfg.Data.LibraryPath)
	cfg.Admin.StatePath = expandHome(cfg.Admin.StatePath)
	cfg.Search.IndexPath = expandHome(cfg.Search.IndexPath)
	cfg.applyEnv()

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CDV_OLLAMA_URL"); v != "" {
		c.AI.OllamaURL = v
	}
	if v := os.Getenv("CDV_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("CDV_ADMIN_PASSWORD"); v != "" {
		c.Admin.Password = v
	}
	if v := os.Getenv("CDV_SEMANTIC_EMBEDDER"); v != "" {
		c.Search.Embedder = strings.ToLower(strings.TrimSpace(v))
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// 0600: the file may carry the admin password.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
