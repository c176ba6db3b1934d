// Package datasource fetches the edge lists behind a view. A source is a
// local file, an HTTP(S) URL or a query against a SQLite database; every
// source of one load is fetched concurrently and normalized as one batch.
package datasource

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vanderheijden86/cograph/pkg/loader"
)

// ErrLoadFailure wraps any fetch or decode failure of a load.
var ErrLoadFailure = errors.New("load failure")

// Kind separates plain co-occurrence lists from category/title lists whose
// rows introduce category marker nodes.
type Kind string

const (
	// KindEdges is a plain edge list.
	KindEdges Kind = "edges"
	// KindCategory is a category/title list; its source column names the
	// category marker node.
	KindCategory Kind = "category"
)

// SourceType identifies how a source is fetched.
type SourceType string

const (
	SourceTypeFile   SourceType = "file"
	SourceTypeHTTP   SourceType = "http"
	SourceTypeSQLite SourceType = "sqlite"
)

// Source describes one edge-list input of a view.
type Source struct {
	// Name identifies the source in logs and skip reports. Defaults to the
	// path, URL or database file name.
	Name string `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	// Kind defaults to KindEdges.
	Kind Kind `yaml:"kind,omitempty" json:"kind,omitempty" toml:"kind,omitempty"`
	// Year tags edge sources for year selection.
	Year int `yaml:"year,omitempty" json:"year,omitempty" toml:"year,omitempty"`
	// Category tags category sources for category selection.
	Category string `yaml:"category,omitempty" json:"category,omitempty" toml:"category,omitempty"`

	// Exactly one of Path, URL and SQLite is set.
	Path   string `yaml:"path,omitempty" json:"path,omitempty" toml:"path,omitempty"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty" toml:"url,omitempty"`
	SQLite string `yaml:"sqlite,omitempty" json:"sqlite,omitempty" toml:"sqlite,omitempty"`
	// Query is required with SQLite. It must return Source1, Source2 and
	// Weight columns, optionally Tier.
	Query string `yaml:"query,omitempty" json:"query,omitempty" toml:"query,omitempty"`

	// Encoding is the charset of file and HTTP bodies (default utf-8).
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty" toml:"encoding,omitempty"`
	// Delimiter is a single character (default ",").
	Delimiter string `yaml:"delimiter,omitempty" json:"delimiter,omitempty" toml:"delimiter,omitempty"`
}

// Type reports how the source is fetched.
func (s Source) Type() SourceType {
	switch {
	case s.SQLite != "":
		return SourceTypeSQLite
	case s.URL != "":
		return SourceTypeHTTP
	default:
		return SourceTypeFile
	}
}

// Origin is the label attached to every record of the source.
func (s Source) Origin() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Type() {
	case SourceTypeSQLite:
		return filepath.Base(s.SQLite)
	case SourceTypeHTTP:
		return s.URL
	default:
		return s.Path
	}
}

// IsCategory reports whether rows of s introduce category marker nodes.
func (s Source) IsCategory() bool {
	return s.Kind == KindCategory
}

// Meta returns the normalizer metadata for s.
func (s Source) Meta() loader.SourceMeta {
	return loader.SourceMeta{Origin: s.Origin(), CategoryMarker: s.IsCategory()}
}

// DecodeOptions returns the decoder settings for s. Validate has already
// rejected multi-character delimiters.
func (s Source) DecodeOptions() loader.DecodeOptions {
	opts := loader.DecodeOptions{Encoding: s.Encoding}
	if s.Delimiter != "" {
		if s.Delimiter == `\t` {
			opts.Delimiter = '\t'
		} else {
			opts.Delimiter, _ = utf8.DecodeRuneInString(s.Delimiter)
		}
	}
	return opts
}

// Validate checks that s names exactly one location and carries consistent
// settings.
func (s Source) Validate() error {
	set := 0
	for _, v := range []string{s.Path, s.URL, s.SQLite} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return fmt.Errorf("source %q: one of path, url or sqlite is required", s.Name)
	case set > 1:
		return fmt.Errorf("source %q: path, url and sqlite are mutually exclusive", s.Name)
	}

	switch s.Kind {
	case "", KindEdges, KindCategory:
	default:
		return fmt.Errorf("source %q: unknown kind %q", s.Origin(), s.Kind)
	}

	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: %w", s.Origin(), err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: unsupported scheme %q", s.Origin(), u.Scheme)
		}
	}
	if s.SQLite != "" && strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("source %q: sqlite sources need a query", s.Origin())
	}
	if s.Delimiter != "" && s.Delimiter != `\t` && utf8.RuneCountInString(s.Delimiter) != 1 {
		return fmt.Errorf("source %q: delimiter must be a single character", s.Origin())
	}
	if s.Encoding != "" {
		if _, err := loader.LookupEncoding(s.Encoding); err != nil {
			return fmt.Errorf("source %q: %w", s.Origin(), err)
		}
	}
	return nil
}

// String returns a human-readable description of the source.
func (s Source) String() string {
	var b strings.Builder
	b.WriteString(s.Origin())
	b.WriteString(" (")
	b.WriteString(string(s.Type()))
	if s.IsCategory() {
		b.WriteString(", category")
		if s.Category != "" {
			b.WriteString(" " + s.Category)
		}
	}
	if s.Year != 0 {
		b.WriteString(", " + strconv.Itoa(s.Year))
	}
	b.WriteString(")")
	return b.String()
}

// Selection restricts which sources of a view take part in a load. An
// empty set places no restriction on its axis.
type Selection struct {
	Years      []int    `json:"years,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// IsEmpty reports whether the selection passes every source.
func (sel Selection) IsEmpty() bool {
	return len(sel.Years) == 0 && len(sel.Categories) == 0
}

// Matches reports whether s passes the selection. Edge sources are filtered
// by year and category sources by category; untagged sources always pass.
func (sel Selection) Matches(s Source) bool {
	if s.IsCategory() {
		if len(sel.Categories) == 0 || s.Category == "" {
			return true
		}
		for _, c := range sel.Categories {
			if strings.EqualFold(c, s.Category) {
				return true
			}
		}
		return false
	}
	if len(sel.Years) == 0 || s.Year == 0 {
		return true
	}
	for _, y := range sel.Years {
		if y == s.Year {
			return true
		}
	}
	return false
}

// Select returns the sources passing the year and category sets, keeping
// their configured order.
func Select(sources []Source, years []int, categories []string) []Source {
	sel := Selection{Years: years, Categories: categories}
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if sel.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Years lists the distinct years tagged on edge sources, ascending.
func Years(sources []Source) []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range sources {
		if s.IsCategory() || s.Year == 0 || seen[s.Year] {
			continue
		}
		seen[s.Year] = true
		out = append(out, s.Year)
	}
	slices.Sort(out)
	return out
}

// Categories lists the distinct categories of category sources in
// configured order.
func Categories(sources []Source) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range sources {
		if !s.IsCategory() || s.Category == "" || seen[strings.ToLower(s.Category)] {
			continue
		}
		seen[strings.ToLower(s.Category)] = true
		out = append(out, s.Category)
	}
	return out
}
