package api

import (
	"errors"
	"net/http"

	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/profile"
	"github.com/merchkit/storefront-core/internal/session"
)

// meResponse is the authenticated caller's own view.
type meResponse struct {
	User    *identity.Identity `json:"user"`
	Profile *profile.Profile   `json:"profile,omitempty"`
}

// handleMe returns the caller's identity and profile. API shape: a missing
// session is a 401 body, never a redirect.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	jar := session.NewJar(r)

	res, err := s.provider.ResolveSession(r.Context(), jar.Read())
	if err != nil {
		s.logger.Error("session resolution failed", "error", err)
		writeInternalError(w, "session resolution failed")
		return
	}
	if res.Identity == nil {
		writeUnauthorized(w, "not signed in")
		return
	}

	for _, sc := range res.SetCookies {
		jar.Stage(sc)
	}
	jar.Apply(w)

	prof, err := s.profiles.FetchMine(r.Context(), res.Identity.ID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.logger.Error("profile fetch failed", "user_id", res.Identity.ID, "error", err)
		writeInternalError(w, "profile fetch failed")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: res.Identity, Profile: prof})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
