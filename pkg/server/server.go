// Package server exposes a session's views over HTTP so that a browser
// viewer can drive hover focus and the resolution control remotely.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/builder"
	"github.com/vanderheijden86/cograph/pkg/export"
	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/session"
	"github.com/vanderheijden86/cograph/pkg/version"
)

// maxRequestBytes bounds POST bodies; every request body is a tiny JSON object.
const maxRequestBytes = 1 << 16

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestTimeout bounds how long a handler waits on a view's actor.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Server routes HTTP requests onto session views.
type Server struct {
	sess    *session.Session
	logger  *log.Logger
	timeout time.Duration
	router  chi.Router
}

// New builds the router for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		sess:    sess,
		logger:  log.New(io.Discard),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.timeout))

	r.Get("/health", s.health)
	r.Route("/api/views", func(r chi.Router) {
		r.Get("/", s.listViews)
		r.Route("/{viewID}", func(r chi.Router) {
			r.Get("/", s.getGraph)
			r.Post("/reload", s.reload)
			r.Post("/hover", s.hoverEnter)
			r.Delete("/hover", s.hoverLeave)
			r.Post("/resolution", s.changeResolution)
			r.Get("/ranking", s.ranking)
			r.Get("/communities", s.communities)
			r.Get("/render.svg", s.renderSVG)
		})
	})
	return r
}

// requestLogger logs one line per request at debug level, errors at warn.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if ww.Status() >= http.StatusBadRequest {
				logger.Warn("http request", args...)
				return
			}
			logger.Debug("http request", args...)
		})
	}
}

// ViewSummary is one entry of the view listing.
type ViewSummary struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	State      string        `json:"state"`
	Active     bool          `json:"active"`
	Resolution float64       `json:"resolution"`
	Stats      builder.Stats `json:"stats"`
	Error      string        `json:"error,omitempty"`
}

type hoverRequest struct {
	Node string `json:"node"`
}

type resolutionRequest struct {
	Command string   `json:"command,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

type resolutionResponse struct {
	Resolution float64 `json:"resolution"`
	Reset      bool    `json:"reset,omitempty"`
	Groups     int     `json:"groups"`
	Modularity float64 `json:"modularity"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"views":   len(s.sess.Views()),
	})
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	var activeID string
	if active, err := s.sess.Active(); err == nil {
		activeID = active.ID()
	}
	out := make([]ViewSummary, 0, len(s.sess.Views()))
	for _, id := range s.sess.Views() {
		v, err := s.sess.View(id)
		if err != nil {
			continue
		}
		snap, err := v.Snapshot(r.Context())
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		sum := ViewSummary{
			ID:         id,
			Title:      snap.Title,
			State:      snap.State.String(),
			Active:     id == activeID,
			Resolution: snap.Resolution.Float64(),
			Stats:      snap.Stats,
		}
		if snap.LastErr != nil {
			sum.Error = snap.LastErr.Error()
		}
		out = append(out, sum)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	snap, err := v.Snapshot(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if snap.Graph() == nil {
		s.respondFailure(w, r, builder.ErrEmptyDataset)
		return
	}
	respondJSON(w, http.StatusOK, export.BuildDocument(snap.Styler, snap.Title))
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	report, err := v.Reload(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) hoverEnter(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	var req hoverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Node == "" {
		respondError(w, http.StatusBadRequest, "node is required")
		return
	}
	if err := v.OnHoverEnter(r.Context(), req.Node); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) hoverLeave(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	if err := v.OnHoverLeave(r.Context()); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) changeResolution(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	var req resolutionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var resp resolutionResponse
	switch {
	case req.Value != nil:
		if _, err := v.SetResolution(r.Context(), *req.Value); err != nil {
			if !errors.Is(err, analysis.ErrResolutionOutOfRange) {
				s.respondFailure(w, r, err)
				return
			}
			resp.Reset = true
		}
	case req.Command != "":
		cmd, err := analysis.ParseResolutionCommand(req.Command)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := v.OnResolutionChange(r.Context(), cmd); err != nil {
			if !errors.Is(err, analysis.ErrResolutionOutOfRange) {
				s.respondFailure(w, r, err)
				return
			}
			resp.Reset = true
		}
	default:
		respondError(w, http.StatusBadRequest, "command or value is required")
		return
	}

	part, err := v.Communities(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	res, err := v.Resolution(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	resp.Resolution = res.Float64()
	resp.Groups = part.Len()
	resp.Modularity = part.Modularity
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) ranking(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	ranking, err := v.Ranking(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) communities(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	part, err := v.Communities(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, part)
}

func (s *Server) renderSVG(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	snap, err := v.Snapshot(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if snap.Graph() == nil {
		s.respondFailure(w, r, builder.ErrEmptyDataset)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	export.WriteSVG(w, snap.Styler, export.Options{Title: snap.Title})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) (*session.View, bool) {
	id := chi.URLParam(r, "viewID")
	v, err := s.sess.View(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return v, true
}

// respondFailure maps domain errors onto status codes.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnknownView):
		status = http.StatusNotFound
	case errors.Is(err, interaction.ErrUnknownNode):
		status = http.StatusNotFound
	case errors.Is(err, builder.ErrEmptyDataset):
		status = http.StatusConflict
	case errors.Is(err, session.ErrStaleLoad):
		status = http.StatusConflict
	case errors.Is(err, datasource.ErrLoadFailure):
		status = http.StatusBadGateway
	case errors.Is(err, analysis.ErrResolutionOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"err", err)
	}
	respondError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
