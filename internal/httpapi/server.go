// Package httpapi exposes the tracker service over JSON/HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/service"
)

// ActorResolver turns an Authorization header into the acting user.
type ActorResolver interface {
	FromHeader(ctx context.Context, header string) (*domain.User, error)
}

type Server struct {
	trackers service.TrackerService
	actors   ActorResolver
	logger   *slog.Logger
}

func NewServer(trackers service.TrackerService, actors ActorResolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{trackers: trackers, actors: actors, logger: logger}
}

// Router returns the handler serving every route under /hourglass.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/hourglass/time_trackers", func(tr chi.Router) {
		tr.Use(s.authenticate)
		s.RegisterRoutes(tr)
	})
	return r
}

// RegisterRoutes mounts the tracker routes on r. Static paths take
// precedence over {id}, so "bulk_update" is never read as an id.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handleList)
	r.Post("/start", s.handleStart)
	r.Put("/bulk_update", s.handleBulkUpdate)
	r.Delete("/bulk_destroy", s.handleBulkDestroy)
	r.Get("/{id}", s.handleShow)
	r.Put("/{id}", s.handleUpdate)
	r.Delete("/{id}/stop", s.handleStop)
	r.Delete("/{id}", s.handleDestroy)
}

type actorKey struct{}

// ActorFromContext returns the user set by the authentication middleware.
func ActorFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(actorKey{}).(*domain.User)
	return u
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.actors.FromHeader(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
