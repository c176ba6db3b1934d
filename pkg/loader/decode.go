// Package loader decodes tabular edge lists and normalizes their rows into
// model.EdgeRecord batches.
//
// Decoding accepts an explicit character set because source files are
// frequently exported from spreadsheet tools in legacy encodings (EUC-KR,
// Shift_JIS, windows-1252). The loader never guesses the charset.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// DefaultEncoding is used when DecodeOptions.Encoding is empty.
const DefaultEncoding = "utf-8"

// DecodeOptions controls tabular decoding.
type DecodeOptions struct {
	// Encoding is a WHATWG/IANA charset label such as "utf-8" or "euc-kr".
	Encoding string
	// Delimiter defaults to ','.
	Delimiter rune
}

// RequiredColumns lists the headers every edge list must carry.
var RequiredColumns = []string{ColumnSource, ColumnTarget, ColumnWeight}

// LookupEncoding resolves a charset label.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// Decode reads a header-led CSV stream in the configured charset.
func Decode(r io.Reader, opts DecodeOptions) ([]RawRecord, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return decodeText(transform.NewReader(r, enc.NewDecoder()), opts)
}

// DecodeString reads already-decoded text; opts.Encoding is ignored.
func DecodeString(text string, opts DecodeOptions) ([]RawRecord, error) {
	return decodeText(strings.NewReader(text), opts)
}

func decodeText(r io.Reader, opts DecodeOptions) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: %w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		present[columns[i]] = true
	}
	for _, req := range RequiredColumns {
		if !present[strings.ToLower(req)] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	var rows []RawRecord
	for rowNum := 1; ; rowNum++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		if isBlank(fields) {
			continue
		}
		rec := RawRecord{Fields: make(map[string]string, len(columns)), Row: rowNum}
		for i, col := range columns {
			if i < len(fields) {
				rec.Fields[col] = fields[i]
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
