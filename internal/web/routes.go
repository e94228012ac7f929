package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/web/handlers"
	"github.com/smartclass/attendance/internal/web/metrics"
	"github.com/smartclass/attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager, stores Stores, fe handlers.FeatureExtractor, index *database.DescriptorIndex) {
	authHandler := handlers.NewAuthHandler(stores.Users, sessionManager)
	studentHandler := handlers.NewStudentHandler(stores.Students, fe, index, &s.config.Recognition)
	subjectHandler := handlers.NewSubjectHandler(stores.Subjects)
	liveHandler := handlers.NewLiveHandler(s.sessions, stores.Students, stores.Subjects, stores.Attendance, fe, &s.config.Recognition)
	attendanceHandler := handlers.NewAttendanceHandler(stores.Attendance, stores.Subjects)
	statsHandler := handlers.NewStatsHandler(stores.Attendance, s.sessions)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Method("GET", "/metrics", metrics.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// All other routes require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Students
			r.Post("/students", studentHandler.Register)
			r.Get("/students", studentHandler.List)
			r.Get("/students/{id}", studentHandler.Get)
			r.Delete("/students/{id}", studentHandler.Delete)

			// Subjects
			r.Get("/subjects", subjectHandler.List)
			r.Post("/subjects", subjectHandler.Create)
			r.Get("/subjects/{id}/attendance", attendanceHandler.Report)

			// Live recognition sessions
			r.Post("/live", liveHandler.Start)
			r.Get("/live/{id}", liveHandler.Status)
			r.Post("/live/{id}/capture", liveHandler.Capture)
			r.Post("/live/{id}/save", liveHandler.Save)
			r.Delete("/live/{id}", liveHandler.Discard)

			// Stats
			r.Get("/stats", statsHandler.Get)
		})
	})
}
