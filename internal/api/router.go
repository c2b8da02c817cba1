package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// The auth and API surfaces mount directly; every other path falls to a page
// shell wrapped by the routing gate, which owns redirects for admin,
// protected, and auth-flow pages.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Account operations
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", s.handleSignIn)
		r.Post("/sign-up", s.handleSignUp)
		r.Post("/sign-out", s.handleSignOut)
		r.Get("/sign-out", s.handleSignOut)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/update-password", s.handleUpdatePassword)
		r.Get("/callback", s.handleCallback)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/me", s.handleMe)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{slug}", s.handleGetProduct)
		r.Get("/categories", s.handleListCategories)

		r.Get("/session/events", s.handleSessionEvents)
	})

	// Page shell behind the gate
	r.NotFound(s.gate.Middleware(http.HandlerFunc(s.handlePageShell)).ServeHTTP)

	return r
}

// handlePageShell answers the page routes the gate lets through. The real
// storefront UI renders client side; the core serves a stable shell so page
// requests succeed and carry any rotated session cookies.
func (s *Server) handlePageShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write([]byte("<!DOCTYPE html><html><head><title>" + s.cfg.Site.Name + "</title></head><body><div id=\"root\"></div></body></html>"))
}
