// Package config handles loading and saving mm configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/mm/config.yaml
//   - Data:    ~/.local/share/mm/ (profiles database)
//   - State:   ~/.local/state/mm/ (view state cache)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modmill/modmill/pkg/sorting"
)

// Game represents a registered game installation in the config.
type Game struct {
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`
}

// Column describes one mod list column. Typed columns sort by their
// auxiliary key (byte size, timestamp) instead of the display text.
type Column struct {
	Title string `yaml:"title"`
	Typed bool   `yaml:"typed,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DefaultView string `yaml:"default_view,omitempty"` // mods, packs
	RegexSearch bool   `yaml:"regex_search,omitempty"` // treat the search box as a regexp
	Headless    bool   `yaml:"headless,omitempty"`     // Compact header mode
}

// Config is the top-level configuration for mm.
type Config struct {
	Games      []Game   `yaml:"games,omitempty"`
	ActiveGame string   `yaml:"active_game,omitempty"`
	Columns    []Column `yaml:"columns,omitempty"`
	UI         UIConfig `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with the stock mod list columns.
func DefaultConfig() Config {
	return Config{
		Columns: []Column{
			{Title: "Name"},
			{Title: "Creator"},
			{Title: "Type"},
			{Title: "Size", Typed: true},
			{Title: "Created", Typed: true},
			{Title: "Updated", Typed: true},
		},
		UI: UIConfig{DefaultView: "mods"},
	}
}

// RoleTable derives the column → sort role mapping from the column layout.
// Columns without an entry fall back to the display role.
func (c Config) RoleTable() sorting.RoleTable {
	table := make(sorting.RoleTable)
	for i, col := range c.Columns {
		if col.Typed {
			table[i] = sorting.RoleTyped
		}
	}
	return table
}

// ConfigDir returns the XDG config directory for mm.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mm")
}

// DataDir returns the XDG data directory for mm.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "mm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "mm")
}

// StateDir returns the XDG state directory for mm.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "mm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "mm")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// An empty column list would break every view; keep the defaults.
	if len(cfg.Columns) == 0 {
		cfg.Columns = DefaultConfig().Columns
	}

	// Expand ~ in game paths
	for i := range cfg.Games {
		cfg.Games[i].DataDir = expandHome(cfg.Games[i].DataDir)
	}

	return cfg, nil
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
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindGame returns the game with the given name, or nil.
func (c Config) FindGame(name string) *Game {
	for i := range c.Games {
		if strings.EqualFold(c.Games[i].Name, name) {
			return &c.Games[i]
		}
	}
	return nil
}

// ActiveGameDir returns the data directory of the active game, or "".
func (c Config) ActiveGameDir() string {
	if g := c.FindGame(c.ActiveGame); g != nil {
		return g.ResolvedDataDir()
	}
	return ""
}

// ResolvedDataDir returns the game data directory with ~ expanded.
func (g Game) ResolvedDataDir() string {
	return expandHome(g.DataDir)
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
