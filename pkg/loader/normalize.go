package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vanderheijden86/cograph/pkg/model"
)

// Column names recognised in edge-list headers. Matching is
// case-insensitive.
const (
	ColumnSource = "Source1"
	ColumnTarget = "Source2"
	ColumnWeight = "Weight"
	ColumnTier   = "Tier"
)

// ErrMalformedRow marks a row that was skipped because an endpoint was
// missing. It is recorded in Batch.Skipped and never returned from a load.
var ErrMalformedRow = errors.New("malformed row")

// RawRecord is one undecoded data row keyed by lower-cased header name.
type RawRecord struct {
	Fields map[string]string
	// Row is the 1-based data row number (header excluded).
	Row int
}

// Get returns the field for a column name, matching case-insensitively.
func (r RawRecord) Get(column string) (string, bool) {
	v, ok := r.Fields[strings.ToLower(column)]
	return v, ok
}

// SourceMeta describes where a group of rows came from.
type SourceMeta struct {
	Origin string
	// CategoryMarker is set for rows read from a category/title source.
	CategoryMarker bool
}

// Skip records a dropped row.
type Skip struct {
	Origin string
	Row    int
	Reason string
	Err    error
}

func (s Skip) String() string {
	return fmt.Sprintf("%s row %d: %s", s.Origin, s.Row, s.Reason)
}

// Batch is the normalized output of one data load.
type Batch struct {
	Records []model.EdgeRecord
	// MaxWeight is the largest valid weight across Records.
	MaxWeight float64
	Skipped   []Skip
	// InvalidWeights counts kept records whose weight could not be used.
	InvalidWeights int
}

// NormalizedWeight maps a record's weight onto [0,1] relative to the batch
// maximum. Invalid weights and a zero maximum both yield 0.
func (b Batch) NormalizedWeight(r model.EdgeRecord) float64 {
	if !r.WeightValid || b.MaxWeight <= 0 {
		return 0
	}
	return r.Weight / b.MaxWeight
}

// Len returns the number of kept records.
func (b Batch) Len() int { return len(b.Records) }

// Normalizer accumulates rows from any number of sources into one batch.
// The batch maximum is shared by every source added before Batch is read.
type Normalizer struct {
	logger *log.Logger
	batch  Batch
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger routes skip warnings to l.
func WithLogger(l *log.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer returns an empty normalizer. Output is silent unless a
// logger is supplied.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Add normalizes rows from one source and appends them to the batch.
func (n *Normalizer) Add(meta SourceMeta, rows []RawRecord) {
	for _, raw := range rows {
		rec, skip, ok := normalizeRow(meta, raw)
		if !ok {
			n.batch.Skipped = append(n.batch.Skipped, skip)
			n.logger.Warn("skipping row", "origin", skip.Origin, "row", skip.Row, "reason", skip.Reason)
			continue
		}
		if rec.WeightValid {
			n.batch.MaxWeight = math.Max(n.batch.MaxWeight, rec.Weight)
		} else {
			n.batch.InvalidWeights++
			n.logger.Debug("invalid weight, edge size falls back to 0", "origin", meta.Origin, "row", raw.Row)
		}
		if tierRaw, _ := raw.Get(ColumnTier); tierRaw != "" && rec.Tier == model.TierNone {
			n.logger.Debug("unknown tier", "origin", meta.Origin, "row", raw.Row, "tier", tierRaw)
		}
		n.batch.Records = append(n.batch.Records, rec)
	}
}

// Batch returns the accumulated batch.
func (n *Normalizer) Batch() Batch {
	return n.batch
}

// Normalize is a convenience for a single-source load.
func Normalize(meta SourceMeta, rows []RawRecord) Batch {
	n := NewNormalizer()
	n.Add(meta, rows)
	return n.Batch()
}

func normalizeRow(meta SourceMeta, raw RawRecord) (model.EdgeRecord, Skip, bool) {
	srcRaw, _ := raw.Get(ColumnSource)
	dstRaw, _ := raw.Get(ColumnTarget)
	src := strings.TrimSpace(srcRaw)
	dst := strings.TrimSpace(dstRaw)

	switch {
	case src == "" && dst == "":
		return model.EdgeRecord{}, Skip{Origin: meta.Origin, Row: raw.Row, Reason: "missing source and target", Err: ErrMalformedRow}, false
	case src == "":
		return model.EdgeRecord{}, Skip{Origin: meta.Origin, Row: raw.Row, Reason: "missing source", Err: ErrMalformedRow}, false
	case dst == "":
		return model.EdgeRecord{}, Skip{Origin: meta.Origin, Row: raw.Row, Reason: "missing target", Err: ErrMalformedRow}, false
	}

	weightRaw, _ := raw.Get(ColumnWeight)
	weight, valid := parseWeight(weightRaw)

	rec := model.EdgeRecord{
		Source:           src,
		Target:           dst,
		Weight:           weight,
		WeightValid:      valid,
		IsCategoryMarker: meta.CategoryMarker,
		Origin:           meta.Origin,
		Row:              raw.Row,
	}
	if tierRaw, ok := raw.Get(ColumnTier); ok {
		rec.Tier, _ = model.ParseTier(tierRaw)
	}
	return rec, Skip{}, true
}

// groupedNumber matches 1,234 and 1,234,567.89 but not a decimal comma.
var groupedNumber = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// parseWeight accepts finite, non-negative numbers, optionally with comma
// thousands separators. A decimal comma such as "1,5" is invalid.
func parseWeight(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, false
	}
	return w, true
}
