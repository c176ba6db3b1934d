// Package session keeps the views of one running program. Each view owns a
// graph, an interaction state and a renderer, and processes its events on
// a dedicated actor goroutine so that no reader ever observes a partially
// rebuilt graph. A Session is an explicit value; there is no package-level
// registry.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownView is returned for a view id that was never opened.
	ErrUnknownView = errors.New("unknown view")
	// ErrClosed is returned by operations on a closed session or view.
	ErrClosed = errors.New("session closed")
	// ErrStaleLoad is returned when a load completes after a newer load of
	// the same view was requested; its result is discarded.
	ErrStaleLoad = errors.New("stale load discarded")
)

// Session maps view ids to views and tracks the active view.
type Session struct {
	mu     sync.RWMutex
	views  map[string]*View
	order  []string
	active string
	closed bool
	logger *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger inherited by views that do not bring their own.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		views:  make(map[string]*View),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates the view id. The first opened view becomes active.
func (s *Session) Open(id string, opts ViewOptions) (*View, error) {
	if id == "" {
		return nil, fmt.Errorf("open view: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.views[id]; ok {
		return nil, fmt.Errorf("open view: %q already open", id)
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	v := newView(id, opts)
	s.views[id] = v
	s.order = append(s.order, id)
	if s.active == "" {
		s.active = id
	}
	s.logger.Debug("view opened", "view", id, "sources", len(opts.Sources))
	return v, nil
}

// View returns the view id.
func (s *Session) View(id string) (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, id)
	}
	return v, nil
}

// Active returns the active view.
func (s *Session) Active() (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.views[s.active]
	if !ok {
		return nil, fmt.Errorf("%w: no active view", ErrUnknownView)
	}
	return v, nil
}

// SetActive switches the active view. Other views are not touched.
func (s *Session) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.views[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, id)
	}
	s.active = id
	return nil
}

// Cycle moves the active view by delta positions in open order, wrapping.
func (s *Session) Cycle(delta int) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("%w: no views", ErrUnknownView)
	}
	cur := 0
	for i, id := range s.order {
		if id == s.active {
			cur = i
			break
		}
	}
	n := len(s.order)
	next := ((cur+delta)%n + n) % n
	s.active = s.order[next]
	return s.views[s.active], nil
}

// Views returns the view ids in open order.
func (s *Session) Views() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Close stops every view and disposes its renderer. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	views := make([]*View, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, v)
	}
	s.mu.Unlock()

	sort.Slice(views, func(i, j int) bool { return views[i].id < views[j].id })
	for _, v := range views {
		v.close()
	}
	return nil
}

// LoadAll reloads every view concurrently. A failing view does not stop
// the others; the first error is returned.
func (s *Session) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range s.Views() {
		v, err := s.View(id)
		if err != nil {
			return err
		}
		g.Go(func() error {
			_, err := v.Reload(ctx)
			return err
		})
	}
	return g.Wait()
}
