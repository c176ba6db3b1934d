package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/cograph/pkg/loader"
)

// SQLiteReader runs edge-list queries against a SQLite database opened
// read-only.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens the database at path for reading.
func NewSQLiteReader(path string) (*SQLiteReader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Best effort; a read-only handle may refuse some pragmas.
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{db: db, path: path}, nil
}

// Close closes the database connection.
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteReader) Path() string { return r.path }

// Query runs query and returns its rows keyed by lower-cased column name.
// The result must carry Source1, Source2 and Weight columns. NULL cells
// become empty fields, which the normalizer treats as missing.
func (r *SQLiteReader) Query(ctx context.Context, query string) ([]loader.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	names := make([]string, len(cols))
	present := make(map[string]bool, len(cols))
	for i, c := range cols {
		names[i] = strings.ToLower(strings.TrimSpace(c))
		present[names[i]] = true
	}
	for _, req := range loader.RequiredColumns {
		if !present[strings.ToLower(req)] {
			return nil, fmt.Errorf("%w: %s", loader.ErrMissingColumn, req)
		}
	}

	var out []loader.RawRecord
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rowNum := 1; rows.Next(); rowNum++ {
		if err := rows.Scan(ptrs...); err != nil {
			return out, fmt.Errorf("scan row %d: %w", rowNum, err)
		}
		rec := loader.RawRecord{Fields: make(map[string]string, len(cols)), Row: rowNum}
		for i, name := range names {
			rec.Fields[name] = cellString(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}
