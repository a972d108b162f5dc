package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-kiosk/internal/web/handlers"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	installation := s.config.Installation()

	authHandler := handlers.NewAuthHandler(s.kiosk, sessionManager)
	registerHandler := handlers.NewRegisterHandler(s.kiosk, installation)
	accountHandler := handlers.NewAccountHandler(s.kiosk, sessionManager)
	adminHandler := handlers.NewAdminHandler(s.kiosk, sessionManager)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Anonymous routes
	s.router.Get("/login", authHandler.LoginPage)
	s.router.Post("/login", authHandler.Login)
	s.router.Get("/register", registerHandler.RegisterPage)
	s.router.Post("/register", registerHandler.Register)
	s.router.Post("/check_face", authHandler.CheckFace)
	s.router.Post("/logout", authHandler.Logout)

	// Authenticated routes
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager))

		r.Get("/", accountHandler.Home)
		r.Post("/myaccount/delete", accountHandler.SelfDelete)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/admin", adminHandler.AdminPage)
			r.Post("/admin/account/delete", adminHandler.AdminDelete)
			r.Post("/admin/identify", adminHandler.Identify)
		})
	})
}
