package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/internal/presentation/diagram"
	"github.com/aretw0/statelens/internal/sanitize"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxDefinitionSize bounds definition uploads.
const MaxDefinitionSize = 1 << 20

// Server exposes a session manager over HTTP.
type Server struct {
	Sessions *session.Manager
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics serves the collectors on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{Sessions: mgr, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Put("/definition", s.LoadDefinition)
			r.Post("/events", s.SendEvent)
			r.Post("/preview", s.Preview)
			r.Delete("/preview", s.CancelPreview)
			r.Post("/selection", s.Select)
			r.Delete("/selection", s.ClearSelection)
			r.Post("/reset", s.Reset)
			r.Get("/graph", s.GetGraph)
			r.Get("/diagram", s.GetDiagram)
			r.Get("/stream", s.Stream)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "statelens-http",
		"version":  strings.TrimSpace(statelens.Version),
		"sessions": len(s.Sessions.List()),
	})
}

// CreateSession handles POST /sessions. The body, if any, is the initial definition.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	def, err := readBody(w, r, MaxDefinitionSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Sessions.Create(r.Context(), def)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("session created", "session_id", sess.ID())
	w.Header().Set("Location", "/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		return sess.Snapshot(), nil
	})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadDefinition handles PUT /sessions/{id}/definition.
func (s *Server) LoadDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := readBody(w, r, MaxDefinitionSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.Load(r.Context(), def); err != nil {
			return nil, err
		}
		return sess.Snapshot(), nil
	})
}

// SendEvent handles POST /sessions/{id}/events. The body is an event object or a bare name.
func (s *Server) SendEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readEvent(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		return sess.SendRaw(r.Context(), payload)
	})
}

// Preview handles POST /sessions/{id}/preview.
func (s *Server) Preview(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readEvent(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	evt, err := domain.ParseEvent(payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		cfg, err := sess.Preview(r.Context(), evt)
		if err != nil {
			return nil, err
		}
		return map[string]any{"event": evt, "preview": cfg}, nil
	})
}

// CancelPreview handles DELETE /sessions/{id}/preview.
func (s *Server) CancelPreview(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		sess.CancelPreview()
		return sess.Snapshot(), nil
	})
}

type selectRequest struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

// Select handles POST /sessions/{id}/selection with a {"path": "a.b"} or {"id": "m.a.b"} body.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, sanitize.DefaultMaxInputSize)).Decode(&body); err != nil {
		s.fail(w, r, &domain.InvalidEventPayloadError{Reason: "invalid selection body", Err: err})
		return
	}
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		var (
			ok  bool
			err error
		)
		if body.ID != "" {
			ok, err = selectByID(sess, body.ID)
		} else {
			ok, err = sess.SelectByPath(domain.ParsePath(body.Path))
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"matched": ok, "selected": sess.Snapshot().Selected}, nil
	})
}

func selectByID(sess *session.Session, id string) (bool, error) {
	m := sess.Machine()
	if m == nil {
		return false, domain.ErrNoMachine
	}
	n := m.NodeByID(id)
	if n == nil {
		return false, nil
	}
	return true, sess.Select(n)
}

// ClearSelection handles DELETE /sessions/{id}/selection.
func (s *Server) ClearSelection(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		sess.ClearSelection()
		return sess.Snapshot(), nil
	})
}

// Reset handles POST /sessions/{id}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		if err := sess.Reset(r.Context()); err != nil {
			return nil, err
		}
		return sess.Snapshot(), nil
	})
}

// GetGraph handles GET /sessions/{id}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) (any, error) {
		v := sess.Snapshot()
		if v.Graph == nil {
			return nil, domain.ErrNoMachine
		}
		return v.Graph, nil
	})
}

// GetDiagram handles GET /sessions/{id}/diagram, returning Mermaid text.
func (s *Server) GetDiagram(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := sess.Snapshot()
	if v.Graph == nil {
		s.fail(w, r, domain.ErrNoMachine)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, diagram.GenerateMermaid(v.Graph, diagram.OverlayFromView(v)))
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) (any, error)) {
	var out any
	err := s.Sessions.WithLock(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, sess *session.Session) error {
		var err error
		out, err = fn(sess)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) readEvent(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := readBody(w, r, int64(sanitize.DefaultMaxInputSize)*4)
	if err != nil {
		return nil, err
	}
	return sanitize.Event(body)
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, err: err}
	}
	return data, nil
}

type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var reqErr *requestError
	var transErr *domain.TransitionError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDefinition), errors.As(err, &transErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUsage), errors.Is(err, domain.ErrNoMachine):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
