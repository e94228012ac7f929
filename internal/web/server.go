package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/recognizer"
	"github.com/smartclass/attendance/internal/web/handlers"
	"github.com/smartclass/attendance/internal/web/middleware"
)

// Stores bundles the persistence interfaces the server depends on.
type Stores struct {
	Users      database.UserStore
	Students   database.StudentStore
	Subjects   database.SubjectStore
	Attendance database.AttendanceStore
}

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	sessions       *recognizer.Manager
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	port int,
	host string,
	sessionSecret string,
	sessionRepo middleware.SessionRepository,
	stores Stores,
	fe handlers.FeatureExtractor,
	index *database.DescriptorIndex,
) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(sessionSecret, sessionRepo)
	sessions := recognizer.NewManager()

	s := &Server{
		config:         cfg,
		router:         r,
		sessionManager: sessionManager,
		sessions:       sessions,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes(sessionManager, stores, fe, index)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // snapshot uploads can be slow on bad wifi
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}
	if s.sessions != nil {
		s.sessions.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
