package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Style.MinSize != 3 || cfg.Style.MaxSize != 15 {
		t.Errorf("expected size range [3,15], got [%g,%g]", cfg.Style.MinSize, cfg.Style.MaxSize)
	}
	if cfg.Layout.Iterations != 500 {
		t.Errorf("expected 500 layout iterations, got %d", cfg.Layout.Iterations)
	}
	if cfg.Analysis.Resolution != 1.0 {
		t.Errorf("expected resolution 1.0, got %g", cfg.Analysis.Resolution)
	}
	if cfg.Watch.DebounceDuration() != 200*time.Millisecond {
		t.Errorf("expected 200ms debounce, got %s", cfg.Watch.DebounceDuration())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if len(cfg.Views) != 0 || cfg.Style.DefaultColor != "#5B8FF9" {
		t.Errorf("expected default config, got %+v", cfg.Views)
	}
	if cfg.Path() != "" {
		t.Errorf("expected empty path for defaults, got %q", cfg.Path())
	}
}

func TestLoadFrom_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
views:
  - id: films
    title: Film co-occurrence
    years: [2021]
    sources:
      - name: e2021
        path: data/2021.csv
        year: 2021
      - path: /abs/titles.csv
        kind: category
        category: genre
        encoding: euc-kr
      - sqlite: data/edges.db
        query: SELECT a AS Source1, b AS Source2, w AS Weight FROM cooc
    output:
      format: png
      path: out/films.png

style:
  min_size: 4
  tiers:
    gold:
      color: "#FFCC00"
      size: 18

layout:
  iterations: 200
  seed: 7

analysis:
  resolution: 1.5
  centrality:
    max_iterations: 50
  community:
    seed: 42
    weighted: true

watch:
  debounce: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(cfg.Views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(cfg.Views))
	}
	v := cfg.Views[0]
	if v.ID != "films" || len(v.Sources) != 3 {
		t.Fatalf("unexpected view %+v", v)
	}
	// Relative paths resolve against the config directory.
	if want := filepath.Join(dir, "data/2021.csv"); v.Sources[0].Path != want {
		t.Errorf("expected %q, got %q", want, v.Sources[0].Path)
	}
	if v.Sources[1].Path != "/abs/titles.csv" {
		t.Errorf("absolute path changed: %q", v.Sources[1].Path)
	}
	if want := filepath.Join(dir, "data/edges.db"); v.Sources[2].SQLite != want {
		t.Errorf("expected %q, got %q", want, v.Sources[2].SQLite)
	}
	if v.Sources[1].Kind != datasource.KindCategory || v.Sources[1].Encoding != "euc-kr" {
		t.Errorf("unexpected category source %+v", v.Sources[1])
	}
	if want := filepath.Join(dir, "out/films.png"); v.Output.Path != want {
		t.Errorf("expected output %q, got %q", want, v.Output.Path)
	}
	if sel := v.Selection(); len(sel.Years) != 1 || sel.Years[0] != 2021 {
		t.Errorf("unexpected selection %+v", sel)
	}

	if cfg.Style.MinSize != 4 || cfg.Style.MaxSize != 15 {
		t.Errorf("style defaults not merged: [%g,%g]", cfg.Style.MinSize, cfg.Style.MaxSize)
	}
	if got := cfg.Style.Tiers[model.TierGold]; got.Color != "#FFCC00" || got.Size != 18 {
		t.Errorf("gold tier = %+v", got)
	}
	if _, ok := cfg.Style.Tiers[model.TierSilver]; !ok {
		t.Error("unlisted tiers should keep their defaults")
	}
	if cfg.Layout.Iterations != 200 || cfg.Layout.Seed != 7 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	res, err := cfg.Resolution()
	if err != nil || res != 15 {
		t.Errorf("Resolution() = %s, %v", res, err)
	}
	a := cfg.AnalysisOptions()
	if a.Centrality.MaxIterations != 50 || a.Community.Seed != 42 || !a.Community.Weighted {
		t.Errorf("analysis = %+v", a)
	}
	if cfg.Watch.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Watch.DebounceDuration())
	}
	if cfg.FindView("FILMS") == nil {
		t.Error("FindView should match case-insensitively")
	}
}

func TestLoadFrom_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[analysis]
resolution = 0.5

[[views]]
id = "people"

  [[views.sources]]
  path = "people.csv"
  delimiter = ";"

  [views.output]
  format = "json"
  path = "people.json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Views) != 1 || cfg.Views[0].Sources[0].Delimiter != ";" {
		t.Fatalf("unexpected views %+v", cfg.Views)
	}
	if want := filepath.Join(dir, "people.csv"); cfg.Views[0].Sources[0].Path != want {
		t.Errorf("expected %q, got %q", want, cfg.Views[0].Sources[0].Path)
	}
	if res, _ := cfg.Resolution(); res != 5 {
		t.Errorf("resolution = %s", res)
	}
	if cfg.Layout.Iterations != 500 {
		t.Error("unset sections should keep defaults")
	}
}

func TestLoadFrom_UnknownKeys(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"config.yaml": "views: []\ncolour: red\n",
		"config.toml": "colour = \"red\"\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFrom(path); err == nil {
			t.Errorf("%s: expected unknown key to be rejected", name)
		}
	}
}

func TestLoadFrom_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Layout.Iterations != 500 {
		t.Error("empty file should yield defaults")
	}
}

func TestValidate(t *testing.T) {
	src := []datasource.Source{{Path: "a.csv"}}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing id", func(c *Config) { c.Views = []ViewConfig{{Sources: src}} }, "id is required"},
		{"duplicate", func(c *Config) {
			c.Views = []ViewConfig{{ID: "a", Sources: src}, {ID: "a", Sources: src}}
		}, "duplicate view id"},
		{"no sources", func(c *Config) { c.Views = []ViewConfig{{ID: "a"}} }, "at least one source"},
		{"bad source", func(c *Config) {
			c.Views = []ViewConfig{{ID: "a", Sources: []datasource.Source{{}}}}
		}, "one of path"},
		{"bad format", func(c *Config) {
			c.Views = []ViewConfig{{ID: "a", Sources: src, Output: OutputConfig{Format: "pdf"}}}
		}, "unknown output format"},
		{"resolution", func(c *Config) { c.Analysis.Resolution = 5 }, "resolution"},
		{"sizes", func(c *Config) { c.Style.MaxSize = 1 }, "invalid size range"},
		{"debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "watch.debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COGRAPH_COMMUNITY_SEED", "99")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.Community.Seed != 99 {
		t.Errorf("expected env seed 99, got %d", cfg.Analysis.Community.Seed)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"nested/config.yaml", "nested/config.toml"} {
		path := filepath.Join(dir, name)
		cfg := Example()
		if err := SaveTo(cfg, path); err != nil {
			t.Fatalf("SaveTo %s: %v", name, err)
		}
		loaded, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("LoadFrom %s: %v", name, err)
		}
		if len(loaded.Views) != 1 || len(loaded.Views[0].Sources) != 3 {
			t.Fatalf("%s: views not preserved: %+v", name, loaded.Views)
		}
		if loaded.Views[0].Sources[2].Kind != datasource.KindCategory {
			t.Errorf("%s: source kind lost", name)
		}
		if r, _ := loaded.Resolution(); r != analysis.DefaultResolution {
			t.Errorf("%s: resolution = %s", name, r)
		}
	}
}

func TestConfigPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got, want := ConfigPath(), filepath.Join(dir, AppName, "config.yaml"); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
	tomlPath := filepath.Join(dir, AppName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(tomlPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tomlPath, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ConfigPath(); got != tomlPath {
		t.Errorf("expected toml path when no yaml exists, got %q", got)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != tomlPath {
		t.Errorf("Path() = %q", cfg.Path())
	}
}
