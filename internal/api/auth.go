package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/session"
)

// successResponse is the uniform happy-path body for the account forms.
type successResponse struct {
	Success bool `json:"success"`
}

// decodeBody decodes a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

// handleSignIn exchanges email/password for session cookies.
//
// Local validation failures answer 401 with per-field errors and never reach
// the provider. Provider rejections land on the password field, matching the
// form that displays them.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var form signInForm
	if !decodeBody(w, r, &form) {
		return
	}
	if errs := form.validate(); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	res, err := s.provider.SignInWithPassword(r.Context(), form.Email, form.Password)
	if err != nil {
		var identErr *identity.Error
		if errors.As(err, &identErr) {
			writeFieldErrors(w, map[string]string{"password": identErr.Message})
			return
		}
		s.logger.Error("sign-in failed", "error", err)
		writeInternalError(w, "sign-in failed")
		return
	}

	s.applySession(w, r, res)
	s.ensureProfile(r.Context(), res.Identity)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleSignUp creates an account and sends the confirmation email. No
// session cookies are set; the account signs in via the emailed callback.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form signUpForm
	if !decodeBody(w, r, &form) {
		return
	}
	if errs := form.validate(); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	err := s.provider.SignUp(r.Context(), identity.SignUpParams{
		Email:    form.Email,
		Password: form.Password,
		Name:     strings.TrimSpace(form.Name),
	})
	if err != nil {
		var identErr *identity.Error
		if errors.As(err, &identErr) {
			writeFieldErrors(w, map[string]string{"email": identErr.Message})
			return
		}
		s.logger.Error("sign-up failed", "error", err)
		writeInternalError(w, "sign-up failed")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleSignOut terminates the session and sends the visitor to the login
// page. POST answers 301 and GET 302, matching the storefront's link and
// form variants.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	jar := session.NewJar(r)

	cleared, err := s.provider.SignOut(r.Context(), jar.Read())
	if err != nil {
		s.logger.Error("sign-out failed", "error", err)
		writeInternalError(w, "sign-out failed")
		return
	}
	for _, sc := range cleared {
		jar.Stage(sc)
	}
	jar.Apply(w)

	status := http.StatusFound
	if r.Method == http.MethodPost {
		status = http.StatusMovedPermanently
	}
	http.Redirect(w, r, "/login", status)
}

// handleForgotPassword requests a recovery email. Provider failures surface
// on the email field as-is, including "User not found" for unknown
// addresses.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var form forgotPasswordForm
	if !decodeBody(w, r, &form) {
		return
	}
	if errs := form.validate(); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	err := s.provider.RequestPasswordReset(r.Context(), form.Email, "/update-password")
	if err != nil {
		var identErr *identity.Error
		if errors.As(err, &identErr) {
			writeFieldErrors(w, map[string]string{"email": identErr.Message})
			return
		}
		s.logger.Error("password reset request failed", "error", err)
		writeInternalError(w, "password reset request failed")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleUpdatePassword exchanges the recovery code and sets the new
// password. Both steps report on the password field; the form has nowhere
// finer to point.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var form updatePasswordForm
	if !decodeBody(w, r, &form) {
		return
	}
	if errs := form.validate(); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	res, err := s.provider.ExchangeCode(r.Context(), form.Code)
	if err != nil {
		s.respondPasswordError(w, err, "code exchange failed")
		return
	}

	if err := s.provider.UpdatePassword(r.Context(), res, form.Password); err != nil {
		s.respondPasswordError(w, err, "password update failed")
		return
	}

	s.applySession(w, r, res)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) respondPasswordError(w http.ResponseWriter, err error, logMsg string) {
	var identErr *identity.Error
	if errors.As(err, &identErr) {
		writeFieldErrors(w, map[string]string{"password": identErr.Message})
		return
	}
	s.logger.Error(logMsg, "error", err)
	writeInternalError(w, logMsg)
}

// handleCallback lands the emailed one-time-code links. A good code becomes
// a session and a redirect to the carried destination; anything else
// bounces to the login page with an error marker.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=auth_error", http.StatusFound)
		return
	}

	res, err := s.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		var identErr *identity.Error
		if !errors.As(err, &identErr) {
			s.logger.Error("code exchange failed", "error", err)
		}
		http.Redirect(w, r, "/login?error=auth_error", http.StatusFound)
		return
	}

	s.applySession(w, r, res)
	s.ensureProfile(r.Context(), res.Identity)

	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

// applySession stages and applies a resolved session's cookies.
func (s *Server) applySession(w http.ResponseWriter, r *http.Request, res *identity.Resolved) {
	if res == nil || len(res.SetCookies) == 0 {
		return
	}
	jar := session.NewJar(r)
	for _, sc := range res.SetCookies {
		jar.Stage(sc)
	}
	jar.Apply(w)
}

// ensureProfile best-effort creates the default customer profile on first
// session establishment. Failure never blocks the sign-in.
func (s *Server) ensureProfile(ctx context.Context, ident *identity.Identity) {
	if ident == nil {
		return
	}
	if _, err := s.profiles.EnsureFor(ctx, ident.ID, ident.Email, authz.RoleCustomer); err != nil {
		s.logger.Warn("profile ensure failed", "user_id", ident.ID, "error", err)
	}
}

// safeNext confines post-callback redirects to local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
