// Package config handles application configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	// DataDir is the directory holding config.yaml and the log file.
	DataDir string `yaml:"-"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `yaml:"-"`

	// BackendURL is the base URL of the file API (without the /api suffix).
	BackendURL string `yaml:"backend_url"`

	// TerminalURL is the websocket endpoint; the container id is appended as a path segment.
	TerminalURL string `yaml:"terminal_url"`

	// ContainerID names the sandbox the terminal attaches to.
	ContainerID string `yaml:"container_id"`

	// RequestTimeoutMs bounds every backend HTTP request.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`

	// AutosaveDelayMs is the quiet period after the last edit before a save is sent.
	AutosaveDelayMs int `yaml:"autosave_delay_ms"`

	// SidebarPercent is the share of the width given to the file tree.
	SidebarPercent int `yaml:"sidebar_percent"`

	// EditorPercent is the share of the right column's height given to the editor.
	EditorPercent int `yaml:"editor_percent"`

	// SyntaxStyle is a chroma style name used for editor highlighting.
	SyntaxStyle string `yaml:"syntax_style"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	// LogFile receives all log output while the TUI owns the terminal.
	LogFile string `yaml:"log_file"`

	// Keys contains keybinding configuration
	Keys KeyBindings `yaml:"keys"`

	// Theme contains theme/appearance configuration
	Theme Theme `yaml:"theme"`
}

// KeyBindings holds all configurable keybindings.
type KeyBindings struct {
	Quit          string `yaml:"quit"`
	FocusNext     string `yaml:"focus_next"`
	FocusTree     string `yaml:"focus_tree"`
	FocusEditor   string `yaml:"focus_editor"`
	FocusTerminal string `yaml:"focus_terminal"`
	NewFile       string `yaml:"new_file"`
	NewFolder     string `yaml:"new_folder"`
	Rename        string `yaml:"rename"`
	Delete        string `yaml:"delete"`
	Refresh       string `yaml:"refresh"`
	Save          string `yaml:"save"`
	Diff          string `yaml:"diff"`
}

// Theme holds theme configuration.
type Theme struct {
	Colors ThemeColors `yaml:"colors"`
}

// ThemeColors holds color configuration.
type ThemeColors struct {
	SelectionBg string `yaml:"selection_bg"`
	SelectionFg string `yaml:"selection_fg"`
	StatusBarBg string `yaml:"statusbar_bg"`
	StatusBarFg string `yaml:"statusbar_fg"`
	FocusFrame  string `yaml:"focus_frame"`
	ErrorFg     string `yaml:"error_fg"`
}

// Default returns a Config with default values.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DataDir:          dataDir,
		BackendURL:       "http://localhost:8080",
		TerminalURL:      "ws://localhost:8080/ws/terminal",
		ContainerID:      "default",
		RequestTimeoutMs: 10000,
		AutosaveDelayMs:  1000,
		SidebarPercent:   25,
		EditorPercent:    70,
		SyntaxStyle:      "monokai",
		LogLevel:         "info",
		LogFile:          filepath.Join(dataDir, "devbox.log"),
		Keys:             DefaultKeyBindings(),
		Theme:            DefaultTheme(),
	}
}

// DefaultKeyBindings returns the default keybindings.
// Global bindings use keys the editor and terminal panels never consume.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Quit:          "ctrl+q",
		FocusNext:     "f4",
		FocusTree:     "f1",
		FocusEditor:   "f2",
		FocusTerminal: "f3",
		NewFile:       "a",
		NewFolder:     "A",
		Rename:        "r",
		Delete:        "d",
		Refresh:       "R",
		Save:          "ctrl+s",
		Diff:          "f5",
	}
}

// DefaultTheme returns the default theme configuration.
func DefaultTheme() Theme {
	return Theme{
		Colors: ThemeColors{
			SelectionBg: "blue",
			SelectionFg: "white",
			StatusBarBg: "blue",
			StatusBarFg: "white",
			FocusFrame:  "green",
			ErrorFg:     "red",
		},
	}
}

// Load loads configuration from the default config file, falling back to defaults.
func Load() (*Config, error) {
	return LoadFile(Default().ConfigFile())
}

// LoadFile loads configuration from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.WrapPrefix(err, "read config", 0)
	}
	cfg.Path = path

	// Parse YAML into a temporary struct to merge with defaults
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, errors.WrapPrefix(err, "parse "+path, 0)
	}

	mergeConfig(cfg, &fileCfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks keybindings, colors and numeric bounds.
func (c *Config) Validate() error {
	if err := ValidateKeys(&c.Keys); err != nil {
		return err
	}
	if err := ValidateTheme(&c.Theme); err != nil {
		return err
	}
	if c.AutosaveDelayMs <= 0 {
		return errors.Errorf("autosave_delay_ms must be positive, got %d", c.AutosaveDelayMs)
	}
	if c.RequestTimeoutMs <= 0 {
		return errors.Errorf("request_timeout_ms must be positive, got %d", c.RequestTimeoutMs)
	}
	if c.SidebarPercent < 10 || c.SidebarPercent > 60 {
		return errors.Errorf("sidebar_percent must be within 10..60, got %d", c.SidebarPercent)
	}
	if c.EditorPercent < 20 || c.EditorPercent > 90 {
		return errors.Errorf("editor_percent must be within 20..90, got %d", c.EditorPercent)
	}
	if c.ContainerID == "" {
		return errors.New("container_id must not be empty")
	}
	return nil
}

// AutosaveDelay returns the debounce window as a duration.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMs) * time.Millisecond
}

// RequestTimeout returns the backend request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// mergeConfig merges file configuration into the default configuration.
// Only non-zero values from file are applied.
func mergeConfig(dst, src *Config) {
	mergeString(&dst.BackendURL, src.BackendURL)
	mergeString(&dst.TerminalURL, src.TerminalURL)
	mergeString(&dst.ContainerID, src.ContainerID)
	mergeString(&dst.SyntaxStyle, src.SyntaxStyle)
	mergeString(&dst.LogLevel, src.LogLevel)
	mergeString(&dst.LogFile, src.LogFile)

	if src.RequestTimeoutMs != 0 {
		dst.RequestTimeoutMs = src.RequestTimeoutMs
	}
	if src.AutosaveDelayMs != 0 {
		dst.AutosaveDelayMs = src.AutosaveDelayMs
	}
	if src.SidebarPercent != 0 {
		dst.SidebarPercent = src.SidebarPercent
	}
	if src.EditorPercent != 0 {
		dst.EditorPercent = src.EditorPercent
	}

	mergeKeyBindings(&dst.Keys, &src.Keys)
	mergeTheme(&dst.Theme, &src.Theme)
}

// mergeKeyBindings merges keybindings from src into dst.
func mergeKeyBindings(dst, src *KeyBindings) {
	mergeString(&dst.Quit, src.Quit)
	mergeString(&dst.FocusNext, src.FocusNext)
	mergeString(&dst.FocusTree, src.FocusTree)
	mergeString(&dst.FocusEditor, src.FocusEditor)
	mergeString(&dst.FocusTerminal, src.FocusTerminal)
	mergeString(&dst.NewFile, src.NewFile)
	mergeString(&dst.NewFolder, src.NewFolder)
	mergeString(&dst.Rename, src.Rename)
	mergeString(&dst.Delete, src.Delete)
	mergeString(&dst.Refresh, src.Refresh)
	mergeString(&dst.Save, src.Save)
	mergeString(&dst.Diff, src.Diff)
}

// mergeTheme merges theme configuration from src into dst.
func mergeTheme(dst, src *Theme) {
	mergeString(&dst.Colors.SelectionBg, src.Colors.SelectionBg)
	mergeString(&dst.Colors.SelectionFg, src.Colors.SelectionFg)
	mergeString(&dst.Colors.StatusBarBg, src.Colors.StatusBarBg)
	mergeString(&dst.Colors.StatusBarFg, src.Colors.StatusBarFg)
	mergeString(&dst.Colors.FocusFrame, src.Colors.FocusFrame)
	mergeString(&dst.Colors.ErrorFg, src.Colors.ErrorFg)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// defaultDataDir returns the default data directory.
func defaultDataDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "devbox")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devbox"
	}
	return filepath.Join(home, ".config", "devbox")
}

// ConfigFile returns the path to the config file.
func (c *Config) ConfigFile() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(c.DataDir, "config.yaml")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
