package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Keys.Quit != "ctrl+q" {
		t.Errorf("cfg.Keys.Quit = %q, want %q", cfg.Keys.Quit, "ctrl+q")
	}
	if cfg.Path != "" {
		t.Errorf("cfg.Path = %q, want empty for defaults", cfg.Path)
	}
}

func TestLoadFile_WithConfigFile(t *testing.T) {
	path := writeConfig(t, `backend_url: "http://sandbox:9000"
container_id: "c-42"
autosave_delay_ms: 250
keys:
  quit: "ctrl+x"
  rename: "F2"
  focus_editor: "f6"
theme:
  colors:
    selection_bg: "green"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v, want nil", err)
	}

	if cfg.BackendURL != "http://sandbox:9000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.ContainerID != "c-42" {
		t.Errorf("ContainerID = %q", cfg.ContainerID)
	}
	if cfg.AutosaveDelayMs != 250 {
		t.Errorf("AutosaveDelayMs = %d, want 250", cfg.AutosaveDelayMs)
	}
	if cfg.Keys.Quit != "ctrl+x" {
		t.Errorf("cfg.Keys.Quit = %q, want %q", cfg.Keys.Quit, "ctrl+x")
	}

	// Defaults are preserved for unset values
	if cfg.TerminalURL != "ws://localhost:8080/ws/terminal" {
		t.Errorf("TerminalURL = %q, want default", cfg.TerminalURL)
	}
	if cfg.Keys.Delete != "d" {
		t.Errorf("cfg.Keys.Delete = %q, want %q (default)", cfg.Keys.Delete, "d")
	}
	if cfg.Theme.Colors.SelectionBg != "green" {
		t.Errorf("SelectionBg = %q, want %q", cfg.Theme.Colors.SelectionBg, "green")
	}
	if cfg.Theme.Colors.SelectionFg != "white" {
		t.Errorf("SelectionFg = %q, want %q (default)", cfg.Theme.Colors.SelectionFg, "white")
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoadFile_DuplicateKeysError(t *testing.T) {
	path := writeConfig(t, `keys:
  rename: "x"
  delete: "x"
`)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() expected error for duplicate keys, got nil")
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "keys: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() expected parse error, got nil")
	}
}
