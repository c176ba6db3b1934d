package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/cograph/pkg/loader"
	"github.com/vanderheijden86/cograph/pkg/metrics"
)

// DefaultConcurrency bounds the number of sources fetched at once.
const DefaultConcurrency = 8

// DefaultMaxBodyBytes caps HTTP response bodies.
const DefaultMaxBodyBytes = 256 << 20

// ErrBodyTooLarge is returned when an HTTP source exceeds the body cap.
var ErrBodyTooLarge = errors.New("response body too large")

// LoadResult describes the fetch of a single source.
type LoadResult struct {
	Source  Source
	Rows    int
	Elapsed time.Duration
	Err     error
}

// Loader fetches sources and normalizes them into one batch.
type Loader struct {
	client  *http.Client
	logger  *log.Logger
	limit   int
	maxBody int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger routes load progress and skip warnings to logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConcurrency bounds parallel fetches. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithMaxBodyBytes caps the size of HTTP response bodies. Values below 1
// are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBody = n
		}
	}
}

// NewLoader returns a loader. Output is silent unless a logger is supplied.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  log.New(io.Discard),
		limit:   DefaultConcurrency,
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll fetches every source concurrently and normalizes the rows into one
// batch, so the weight maximum spans the whole load. Records keep the
// configured source order regardless of completion order. Any failure
// cancels the remaining fetches and is returned wrapped in ErrLoadFailure.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) (loader.Batch, []LoadResult, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return loader.Batch{}, nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
		}
	}

	rows, results, err := l.fetchParallel(ctx, sources)
	if err != nil {
		return loader.Batch{}, results, err
	}

	n := loader.NewNormalizer(loader.WithLogger(l.logger))
	for i, s := range sources {
		n.Add(s.Meta(), rows[i])
	}
	batch := n.Batch()
	l.logger.Debug("load complete",
		"sources", len(sources),
		"records", batch.Len(),
		"skipped", len(batch.Skipped),
		"invalid_weights", batch.InvalidWeights,
		"max_weight", batch.MaxWeight)
	return batch, results, nil
}

func (l *Loader) fetchParallel(ctx context.Context, sources []Source) ([][]loader.RawRecord, []LoadResult, error) {
	rows := make([][]loader.RawRecord, len(sources))
	results := make([]LoadResult, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)

	for i, s := range sources {
		g.Go(func() error {
			start := time.Now()
			recs, err := l.Fetch(ctx, s)
			results[i] = LoadResult{Source: s, Rows: len(recs), Elapsed: time.Since(start), Err: err}
			if err != nil {
				l.logger.Error("source failed", "source", s.Origin(), "err", err)
				return fmt.Errorf("%w: %s: %w", ErrLoadFailure, s.Origin(), err)
			}
			l.logger.Debug("source fetched", "source", s.Origin(), "rows", len(recs), "elapsed", results[i].Elapsed)
			rows[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, results, err
	}
	return rows, results, nil
}

// Fetch reads and decodes a single source.
func (l *Loader) Fetch(ctx context.Context, s Source) ([]loader.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch s.Type() {
	case SourceTypeSQLite:
		return fetchSQLite(ctx, s)
	case SourceTypeHTTP:
		return l.fetchHTTP(ctx, s)
	default:
		return fetchFile(s)
	}
}

func fetchFile(s Source) ([]loader.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loader.Decode(f, s.DecodeOptions())
}

func (l *Loader) fetchHTTP(ctx context.Context, s Source) ([]loader.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", s.URL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > l.maxBody {
		return nil, fmt.Errorf("GET %s: %w (limit %d bytes)", s.URL, ErrBodyTooLarge, l.maxBody)
	}
	return loader.Decode(bytes.NewReader(body), s.DecodeOptions())
}

func fetchSQLite(ctx context.Context, s Source) ([]loader.RawRecord, error) {
	if _, err := os.Stat(s.SQLite); err != nil {
		return nil, err
	}
	r, err := NewSQLiteReader(s.SQLite)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Query(ctx, s.Query)
}
