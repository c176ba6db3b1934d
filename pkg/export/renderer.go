// Package export renders a styled graph snapshot to files: SVG, PNG,
// graphology-style JSON, Graphviz DOT, Graphviz-rendered SVG, or a SQLite
// database.
//
// A Renderer is bound to one output for the lifetime of one graph. The
// session disposes it before creating a new one for the next data load.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/metrics"
)

// ErrDisposed is returned by Render after Dispose.
var ErrDisposed = errors.New("renderer disposed")

// Supported output formats.
const (
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatJSON     = "json"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatSQLite   = "sqlite"
	FormatNone     = "none"
)

// Formats lists every format accepted by NewRenderer.
var Formats = []string{FormatSVG, FormatPNG, FormatJSON, FormatDOT, FormatGraphviz, FormatSQLite, FormatNone}

// Renderer draws styled snapshots of one graph.
type Renderer interface {
	// Render draws the graph held by s, applying its display overrides.
	Render(s interaction.Styler) error
	// Dispose releases the renderer. Calling it more than once is safe.
	Dispose() error
}

// Options controls renderer construction.
type Options struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // One of Formats (case-insensitive)
	Title  string // Optional title drawn in the header
	Width  int    // Canvas width in pixels (svg/png)
	Height int    // Canvas height in pixels (svg/png)
}

// ValidFormat reports whether f names a supported format.
func ValidFormat(f string) bool {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// ResolveFormat infers the format from opts.Path when opts.Format is empty.
func ResolveFormat(opts Options) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = FormatSVG
		case ".png":
			format = FormatPNG
		case ".json":
			format = FormatJSON
		case ".dot", ".gv":
			format = FormatDOT
		case ".sqlite", ".sqlite3", ".db":
			format = FormatSQLite
		default:
			format = FormatSVG
		}
	}
	if !ValidFormat(format) {
		return "", fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
	return format, nil
}

// NewRenderer returns the renderer for opts.
func NewRenderer(opts Options) (Renderer, error) {
	format, err := ResolveFormat(opts)
	if err != nil {
		return nil, err
	}
	if format == FormatNone {
		return &Recorder{}, nil
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("output path is required for %s", format)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dir: %w", err)
	}
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}

	base := fileRenderer{opts: opts}
	switch format {
	case FormatSVG:
		return &SVGRenderer{fileRenderer: base}, nil
	case FormatPNG:
		return &PNGRenderer{fileRenderer: base}, nil
	case FormatJSON:
		return &JSONRenderer{fileRenderer: base}, nil
	case FormatDOT:
		return &DOTRenderer{fileRenderer: base}, nil
	case FormatGraphviz:
		return &DOTRenderer{fileRenderer: base, Rendered: true}, nil
	case FormatSQLite:
		return &SQLiteRenderer{fileRenderer: base}, nil
	}
	return nil, fmt.Errorf("unhandled format %q", format)
}

// Dispose disposes r when it is non-nil.
func Dispose(r Renderer) error {
	if r == nil {
		return nil
	}
	return r.Dispose()
}

// fileRenderer holds the state shared by every file-backed renderer.
type fileRenderer struct {
	opts     Options
	disposed bool
	frames   int
}

func (f *fileRenderer) begin() (func(), error) {
	if f.disposed {
		return nil, ErrDisposed
	}
	f.frames++
	return metrics.Timer(metrics.RenderFrame), nil
}

// Path returns the output path.
func (f *fileRenderer) Path() string { return f.opts.Path }

// Frames returns the number of Render calls that reached the output.
func (f *fileRenderer) Frames() int { return f.frames }

// Dispose marks the renderer unusable. The last written file is kept.
func (f *fileRenderer) Dispose() error {
	f.disposed = true
	return nil
}

// writeFile replaces path atomically so readers never see a partial frame.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return renameInto(tmp, path)
}

func renameInto(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Recorder is an in-memory renderer that keeps the last frame. The terminal
// UI uses it when no file output is configured.
type Recorder struct {
	Last     interaction.Styler
	Frames   int
	Disposed bool
}

// Render records s.
func (r *Recorder) Render(s interaction.Styler) error {
	if r.Disposed {
		return ErrDisposed
	}
	r.Last = s
	r.Frames++
	return nil
}

// Dispose marks the recorder disposed.
func (r *Recorder) Dispose() error {
	r.Disposed = true
	return nil
}
