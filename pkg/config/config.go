// Package config handles loading and saving cograph configuration.
//
// Configuration follows the XDG Base Directory specification:
// ~/.config/cograph/config.yaml, with config.toml read when no YAML file
// exists.
//
// Relative source paths resolve against the directory of the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/builder"
	"github.com/vanderheijden86/cograph/pkg/export"
	"github.com/vanderheijden86/cograph/pkg/layout"
)

// AppName names the XDG subdirectories.
const AppName = "cograph"

// DefaultDebounce is the watcher debounce used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// OutputConfig selects the renderer of a view.
type OutputConfig struct {
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // svg, png, json, dot, graphviz, sqlite, none
	Path   string `yaml:"path,omitempty" toml:"path,omitempty"`
	Width  int    `yaml:"width,omitempty" toml:"width,omitempty"`
	Height int    `yaml:"height,omitempty" toml:"height,omitempty"`
}

// ViewConfig describes one view.
type ViewConfig struct {
	ID      string              `yaml:"id" toml:"id"`
	Title   string              `yaml:"title,omitempty" toml:"title,omitempty"`
	Sources []datasource.Source `yaml:"sources" toml:"sources"`
	Output  OutputConfig        `yaml:"output,omitempty" toml:"output,omitempty"`
	// Years and Categories are the initial selection sets.
	Years      []int    `yaml:"years,omitempty" toml:"years,omitempty"`
	Categories []string `yaml:"categories,omitempty" toml:"categories,omitempty"`
}

// Selection returns the configured initial selection.
func (v ViewConfig) Selection() datasource.Selection {
	return datasource.Selection{Years: v.Years, Categories: v.Categories}
}

// AnalysisConfig holds the analysis parameters shared by all views.
type AnalysisConfig struct {
	// Resolution is the initial community resolution (0.1 to 4.0).
	Resolution float64                   `yaml:"resolution" toml:"resolution"`
	Centrality analysis.CentralityConfig `yaml:"centrality" toml:"centrality"`
	Community  analysis.CommunityConfig  `yaml:"community" toml:"community"`
}

// WatchConfig controls source change detection.
type WatchConfig struct {
	// Debounce is a Go duration string such as "200ms".
	Debounce string `yaml:"debounce,omitempty" toml:"debounce,omitempty"`
}

// DebounceDuration parses Debounce, falling back to DefaultDebounce.
func (w WatchConfig) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(w.Debounce); err == nil && d > 0 {
		return d
	}
	return DefaultDebounce
}

// ServeConfig controls the HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Views    []ViewConfig   `yaml:"views" toml:"views"`
	Style    builder.Style  `yaml:"style" toml:"style"`
	Layout   layout.Options `yaml:"layout" toml:"layout"`
	Analysis AnalysisConfig `yaml:"analysis" toml:"analysis"`
	Watch    WatchConfig    `yaml:"watch,omitempty" toml:"watch,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty" toml:"serve,omitempty"`

	// path is the file the config was read from, if any.
	path string
}

// DefaultConfig returns a Config with sensible defaults and no views.
func DefaultConfig() Config {
	a := analysis.DefaultConfig()
	return Config{
		Style:  builder.DefaultStyle(),
		Layout: layout.DefaultOptions(),
		Analysis: AnalysisConfig{
			Resolution: analysis.DefaultResolution.Float64(),
			Centrality: a.Centrality,
			Community:  a.Community,
		},
		Watch: WatchConfig{Debounce: DefaultDebounce.String()},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the default config file path. config.toml is used when
// it exists and config.yaml does not.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	yamlPath := filepath.Join(dir, "config.yaml")
	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(yamlPath); err != nil {
		if _, err := os.Stat(tomlPath); err == nil {
			return tomlPath
		}
	}
	return yamlPath
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

// LoadFrom reads config from a specific path. The format follows the file
// extension (.toml for TOML, YAML otherwise). Returns DefaultConfig if the
// file doesn't exist. Environment overrides are applied last.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Analysis = applyEnv(cfg.Analysis)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := Decode(data, formatOf(path), &cfg); err != nil {
		return cfg, err
	}
	cfg.path = path
	cfg.resolvePaths(filepath.Dir(path))
	cfg.Analysis = applyEnv(cfg.Analysis)
	return cfg, nil
}

// Decode parses data in the given format ("toml" or "yaml") over cfg.
func Decode(data []byte, format string, cfg *Config) error {
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults in place.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	return nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

func applyEnv(a AnalysisConfig) AnalysisConfig {
	env := analysis.ApplyEnvOverrides(analysis.Config{Centrality: a.Centrality, Community: a.Community})
	a.Centrality = env.Centrality
	a.Community = env.Community
	return a
}

// Path returns the file the config was read from, empty for defaults.
func (c Config) Path() string { return c.path }

func (c *Config) resolvePaths(base string) {
	for i := range c.Views {
		for j := range c.Views[i].Sources {
			s := &c.Views[i].Sources[j]
			s.Path = resolve(base, s.Path)
			s.SQLite = resolve(base, s.SQLite)
		}
		c.Views[i].Output.Path = resolve(base, c.Views[i].Output.Path)
	}
}

func resolve(base, path string) string {
	if path == "" {
		return ""
	}
	path = expandHome(path)
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// Validate reports the first configuration problem.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Views))
	for i, v := range c.Views {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("views[%d]: id is required", i)
		}
		if seen[v.ID] {
			return fmt.Errorf("views[%d]: duplicate view id %q", i, v.ID)
		}
		seen[v.ID] = true
		if len(v.Sources) == 0 {
			return fmt.Errorf("view %q: at least one source is required", v.ID)
		}
		for _, s := range v.Sources {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("view %q: %w", v.ID, err)
			}
		}
		if v.Output.Format != "" && !export.ValidFormat(v.Output.Format) {
			return fmt.Errorf("view %q: unknown output format %q", v.ID, v.Output.Format)
		}
	}
	if _, err := c.Resolution(); err != nil {
		return err
	}
	if c.Style.MinSize < 0 || c.Style.MaxSize < c.Style.MinSize {
		return fmt.Errorf("style: invalid size range [%g, %g]", c.Style.MinSize, c.Style.MaxSize)
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("watch.debounce: %w", err)
		}
	}
	return nil
}

// Resolution returns the configured initial resolution.
func (c Config) Resolution() (analysis.Resolution, error) {
	if c.Analysis.Resolution == 0 {
		return analysis.DefaultResolution, nil
	}
	r, err := analysis.ResolutionFromFloat(c.Analysis.Resolution)
	if err != nil {
		return analysis.DefaultResolution, fmt.Errorf("analysis.resolution: %w", err)
	}
	return r, nil
}

// AnalysisOptions returns the analysis service configuration.
func (c Config) AnalysisOptions() analysis.Config {
	return analysis.Config{Centrality: c.Analysis.Centrality, Community: c.Analysis.Community}
}

// FindView returns the view with the given id, or nil.
func (c Config) FindView(id string) *ViewConfig {
	for i := range c.Views {
		if strings.EqualFold(c.Views[i].ID, id) {
			return &c.Views[i]
		}
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path in the format implied by its
// extension.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := Encode(cfg, formatOf(path))
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Encode serialises cfg as "toml" or "yaml".
func Encode(cfg Config, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("marshaling config: %w", err)
		}
	default:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("marshaling config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshaling config: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Example returns a starter configuration with one view.
func Example() Config {
	cfg := DefaultConfig()
	cfg.Views = []ViewConfig{{
		ID:    "main",
		Title: "Co-occurrence network",
		Sources: []datasource.Source{
			{Name: "edges-2023", Path: "data/edges_2023.csv", Year: 2023},
			{Name: "edges-2024", Path: "data/edges_2024.csv", Year: 2024},
			{Name: "titles", Path: "data/titles.csv", Kind: datasource.KindCategory, Category: "title"},
		},
		Output: OutputConfig{Format: export.FormatSVG, Path: "out/main.svg"},
	}}
	return cfg
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
