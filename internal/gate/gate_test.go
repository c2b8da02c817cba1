package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/profile"
	"github.com/merchkit/storefront-core/internal/session"
)

// stubProvider resolves every request the same way.
type stubProvider struct {
	resolved *identity.Resolved
	err      error
	panics   bool
}

func (s *stubProvider) ResolveSession(context.Context, []session.Cookie) (*identity.Resolved, error) {
	if s.panics {
		panic("token store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.resolved == nil {
		return &identity.Resolved{}, nil
	}
	return s.resolved, nil
}

func (s *stubProvider) SignInWithPassword(context.Context, string, string) (*identity.Resolved, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) SignUp(context.Context, identity.SignUpParams) error {
	return errors.New("not implemented")
}
func (s *stubProvider) RequestPasswordReset(context.Context, string, string) error {
	return errors.New("not implemented")
}
func (s *stubProvider) ExchangeCode(context.Context, string) (*identity.Resolved, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) UpdatePassword(context.Context, *identity.Resolved, string) error {
	return errors.New("not implemented")
}
func (s *stubProvider) SignOut(context.Context, []session.Cookie) ([]session.SetCookie, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) Subscribe() (<-chan identity.Event, func()) {
	ch := make(chan identity.Event)
	return ch, func() { close(ch) }
}

// stubProfiles serves a fixed profile, error, or panic.
type stubProfiles struct {
	profile *profile.Profile
	err     error
	panics  bool
}

func (s *stubProfiles) FetchMine(context.Context, string) (*profile.Profile, error) {
	if s.panics {
		panic("profile store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.profile == nil {
		return nil, profile.ErrNotFound
	}
	return s.profile, nil
}

func signedIn() *identity.Resolved {
	return &identity.Resolved{
		Identity: &identity.Identity{ID: "usr-1", Email: "s@example.com"},
	}
}

func serve(t *testing.T, g *Gate, path string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	passed := false
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		passed = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec, passed
}

func newGate(p identity.Provider, profiles ProfileFetcher) *Gate {
	return New(p, profiles, logging.Default())
}

func TestAnonymousAccess(t *testing.T) {
	g := newGate(&stubProvider{}, &stubProfiles{})

	tests := []struct {
		path         string
		wantPass     bool
		wantLocation string
	}{
		{"/", true, ""},
		{"/products/dark-roast", true, ""},
		{"/login", true, ""},
		{"/api/v1/products", true, ""},
		{"/account", false, "/login?redirect_to=%2Faccount"},
		{"/checkout", false, "/login?redirect_to=%2Fcheckout"},
		{"/admin/products", false, "/login?redirect_to=%2Fadmin%2Fproducts"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, passed := serve(t, g, tt.path)
			if passed != tt.wantPass {
				t.Errorf("passed = %v, want %v", passed, tt.wantPass)
			}
			if tt.wantLocation != "" {
				if rec.Code != http.StatusFound {
					t.Errorf("status = %d, want 302", rec.Code)
				}
				if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
					t.Errorf("location = %q, want %q", loc, tt.wantLocation)
				}
			}
		})
	}
}

func TestSignedInLeavesAuthFlow(t *testing.T) {
	g := newGate(&stubProvider{resolved: signedIn()}, &stubProfiles{})

	for _, path := range []string{"/login", "/signup", "/forgot-password", "/update-password"} {
		rec, passed := serve(t, g, path)
		if passed {
			t.Errorf("%s rendered for a signed-in visitor", path)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("%s redirected to %q, want /", path, loc)
		}
	}
}

func TestAdminRouteRoleChecks(t *testing.T) {
	tests := []struct {
		name     string
		profiles *stubProfiles
		wantPass bool
	}{
		{"admin role", &stubProfiles{profile: &profile.Profile{UserID: "usr-1", Role: authz.RoleAdmin}}, true},
		{"super admin role", &stubProfiles{profile: &profile.Profile{UserID: "usr-1", Role: authz.RoleSuperAdmin}}, true},
		{"customer role", &stubProfiles{profile: &profile.Profile{UserID: "usr-1", Role: authz.RoleCustomer}}, false},
		{"no profile", &stubProfiles{}, false},
		{"profile store error", &stubProfiles{err: errors.New("disk on fire")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate(&stubProvider{resolved: signedIn()}, tt.profiles)
			rec, passed := serve(t, g, "/admin/products")
			if passed != tt.wantPass {
				t.Errorf("passed = %v, want %v", passed, tt.wantPass)
			}
			if !tt.wantPass && rec.Header().Get("Location") != "/" {
				t.Errorf("denied admin sent to %q, want /", rec.Header().Get("Location"))
			}
		})
	}
}

func TestTransportFailureIsAnonymous(t *testing.T) {
	g := newGate(&stubProvider{err: errors.New("database locked")}, &stubProfiles{})

	// Public pages still render.
	if _, passed := serve(t, g, "/products"); !passed {
		t.Error("public page blocked by resolution failure")
	}

	// Privileged pages treat the visitor as anonymous.
	rec, passed := serve(t, g, "/account")
	if passed {
		t.Error("protected page rendered despite resolution failure")
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect_to=%2Faccount" {
		t.Errorf("location = %q", loc)
	}
}

func TestPanicOnPrivilegedRouteRedirects(t *testing.T) {
	g := newGate(&stubProvider{resolved: signedIn()}, &stubProfiles{panics: true})

	rec, passed := serve(t, g, "/admin")
	if passed {
		t.Fatal("admin page rendered through a panic")
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect_to=%2Fadmin" {
		t.Errorf("location = %q", loc)
	}
}

func TestPanicDuringResolutionOnPrivilegedRouteRedirects(t *testing.T) {
	g := newGate(&stubProvider{panics: true}, &stubProfiles{})

	rec, passed := serve(t, g, "/account")
	if passed {
		t.Fatal("protected page rendered through a resolution panic")
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect_to=%2Faccount" {
		t.Errorf("location = %q", loc)
	}
}

func TestRefreshedCookiesApplied(t *testing.T) {
	rotated := signedIn()
	rotated.SetCookies = []session.SetCookie{
		{Name: "storefront-access-token", Value: "new-access", Path: "/"},
		{Name: "storefront-refresh-token", Value: "new-refresh", Path: "/"},
	}
	g := newGate(&stubProvider{resolved: rotated}, &stubProfiles{})

	// Applied on pass-through.
	rec, _ := serve(t, g, "/products")
	if got := len(rec.Result().Cookies()); got != 2 {
		t.Errorf("pass-through set %d cookies, want 2", got)
	}

	// Applied on redirect too, so the rotation is never lost.
	rec, _ = serve(t, g, "/login")
	if got := len(rec.Result().Cookies()); got != 2 {
		t.Errorf("redirect set %d cookies, want 2", got)
	}
}

func TestIdentityFlowsToHandlers(t *testing.T) {
	g := newGate(&stubProvider{resolved: signedIn()}, &stubProfiles{})

	var seen *identity.Identity
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products", nil))
	if seen == nil || seen.ID != "usr-1" {
		t.Errorf("handler saw identity %+v", seen)
	}

	// Anonymous requests carry no identity.
	g2 := newGate(&stubProvider{}, &stubProfiles{})
	handler2 := g2.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
	}))
	handler2.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != nil {
		t.Errorf("anonymous request carried identity %+v", seen)
	}
}
