package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Navigator.FrameIntervalMs != 16 || !cfg.Navigator.Enabled {
		t.Errorf("unexpected navigator defaults %+v", cfg.Navigator)
	}
	if cfg.Admin.Password != "admin123" {
		t.Errorf("expected demo admin password, got %q", cfg.Admin.Password)
	}
	if cfg.AI.MaxFailures != 3 {
		t.Errorf("expected max failures 3, got %d", cfg.AI.MaxFailures)
	}
	if cfg.UI.Theme != "dark" || !cfg.UI.ShowGapMarkers {
		t.Errorf("unexpected ui defaults %+v", cfg.UI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.FrameInterval() != 16*time.Millisecond {
		t.Errorf("expected default frame interval, got %v", cfg.FrameInterval())
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data:
  timelines_path: ~/history/timelines
  watch: false
navigator:
  frame_interval_ms: 33
  enabled: false
ai:
  model: mistral
  timeout_seconds: 5
ui:
  theme: light
  show_gap_markers: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "history/timelines"); cfg.Data.TimelinesPath != want {
		t.Errorf("TimelinesPath = %q, want %q", cfg.Data.TimelinesPath, want)
	}
	if cfg.Data.Watch {
		t.Error("expected watch disabled")
	}
	if cfg.FrameInterval() != 33*time.Millisecond || cfg.Navigator.Enabled {
		t.Errorf("navigator = %+v", cfg.Navigator)
	}
	if cfg.AI.Model != "mistral" || cfg.AITimeout() != 5*time.Second {
		t.Errorf("ai = %+v", cfg.AI)
	}
	// Unset keys keep their defaults.
	if cfg.AI.MaxFailures != 3 || cfg.Admin.Password != "admin123" {
		t.Errorf("defaults lost: %+v %+v", cfg.AI, cfg.Admin)
	}
	if cfg.UI.Theme != "light" || cfg.UI.ShowGapMarkers {
		t.Errorf("ui = %+v", cfg.UI)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ui: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  theme: neon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "ui.theme") {
		t.Errorf("expected theme validation error, got %v", err)
	}
}

func TestLoadFrom_SearchSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "search:\n  embedder: ollama\n  model: mxbai-embed-large\n  semantic_weight: 0.25\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.Embedder != "ollama" || cfg.Search.Model != "mxbai-embed-large" || cfg.Search.SemanticWeight != 0.25 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Search.Dim != 384 || cfg.Search.IndexPath == "" {
		t.Errorf("defaults lost: %+v", cfg.Search)
	}

	if err := os.WriteFile(path, []byte("search:\n  embedder: bert\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "search.embedder") {
		t.Errorf("expected embedder validation error, got %v", err)
	}

	t.Setenv("CDV_SEMANTIC_EMBEDDER", " HASH ")
	if err := os.WriteFile(path, []byte("search:\n  embedder: ollama\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg, err := LoadFrom(path); err != nil || cfg.Search.Embedder != "hash" {
		t.Errorf("env override: %+v %v", cfg.Search, err)
	}
}

func TestLoadFrom_ImageSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "ai:\n  image_url: http://127.0.0.1:8080\n  image_model: sd-turbo\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.ImageURL != "http://127.0.0.1:8080" || cfg.AI.ImageModel != "sd-turbo" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.AI.Model != "llama3.2" {
		t.Errorf("chat model default lost: %q", cfg.AI.Model)
	}

	if err := os.WriteFile(path, []byte("ai:\n  image_url: localhost:8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "ai.image_url") {
		t.Errorf("expected image_url validation error, got %v", err)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("CDV_OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("CDV_MODEL", "qwen2.5")
	t.Setenv("CDV_ADMIN_PASSWORD", "s3cret")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.OllamaURL != "http://gpu-box:11434" || cfg.AI.Model != "qwen2.5" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Admin.Password != "s3cret" {
		t.Errorf("password = %q", cfg.Admin.Password)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.AI.Model = "phi3"
	cfg.Navigator.FrameIntervalMs = 20

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AI.Model != "phi3" || loaded.Navigator.FrameIntervalMs != 20 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestXDGDirs(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	if got := ConfigPath(); got != filepath.Join(base, "cfg", "cdv", "config.yaml") {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := DataDir(); got != filepath.Join(base, "data", "cdv") {
		t.Errorf("DataDir = %q", got)
	}
	if got := DefaultConfig().Admin.StatePath; got != filepath.Join(base, "state", "cdv", "admin.db") {
		t.Errorf("admin state path = %q", got)
	}
}
