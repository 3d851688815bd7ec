// Package server exposes the task service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nick-dorsch/taskflow/embed/web"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

const TraceIDHeader = "X-Trace-ID"

type contextKey string

const traceIDKey contextKey = "traceID"

var (
	validate      = validator.New()
	errBadRequest = errors.New("bad request")
)

type Server struct {
	svc    *service.Service
	logger *log.Logger
	router chi.Router

	mu     sync.Mutex
	server *http.Server
}

func NewServer(svc *service.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{svc: svc, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.trace)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Patch("/", s.handleUpdateTask)
				r.Delete("/", s.handleDeleteTask)
				r.Post("/start", s.handleStartTask)
				r.Post("/complete", s.handleCompleteTask)
			})
		})
	})

	r.Handle("/*", http.FileServer(http.FS(web.Assets)))
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("web server listening", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown stops a started server. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// trace stamps each request with a trace id and logs it once served.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.New().String()
		w.Header().Set(TraceIDHeader, traceID)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), traceIDKey, traceID)))

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"trace_id", traceID)
	})
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

type createTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"required_without=Description"`
	Description *string `json:"description" validate:"required_without=Title"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.svc.Stats(r.Context()))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		s.respond(w, r, http.StatusOK, s.svc.List(r.Context()))
		return
	}

	status, err := models.ParseTaskStatus(raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, s.svc.FilterByStatus(r.Context(), status))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	task, err := s.svc.Add(r.Context(), req.Title, req.Description)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	task, ok := s.svc.Get(r.Context(), id)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %d", service.ErrNotFound, id))
		return
	}
	s.respond(w, r, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	var task models.Task
	if req.Title != nil {
		if task, err = s.svc.Rename(r.Context(), id, *req.Title); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.Description != nil {
		if task, err = s.svc.Describe(r.Context(), id, *req.Description); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	s.respond(w, r, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.withTask(w, r, s.svc.Delete)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	s.withTask(w, r, s.svc.Start)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	s.withTask(w, r, s.svc.Complete)
}

func (s *Server) withTask(w http.ResponseWriter, r *http.Request, op func(context.Context, int) (models.Task, error)) {
	id, err := taskID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	task, err := op(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, task)
}

func taskID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid task id %q", errBadRequest, raw)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrInvalidTitle),
		errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err, "trace_id", traceID(r.Context()))
	}
	s.respond(w, r, status, ErrorResponse{Error: err.Error(), TraceID: traceID(r.Context())})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "path", r.URL.Path, "err", err)
	}
}
