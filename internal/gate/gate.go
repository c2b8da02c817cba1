package gate

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/profile"
	"github.com/merchkit/storefront-core/internal/session"
)

type contextKey string

// identityKey carries the resolved identity through the request context so
// downstream handlers never resolve the session a second time.
const identityKey contextKey = "gate.identity"

// IdentityFrom returns the identity the gate resolved for this request, or
// nil for an anonymous visitor.
func IdentityFrom(ctx context.Context) *identity.Identity {
	ident, _ := ctx.Value(identityKey).(*identity.Identity)
	return ident
}

// ProfileFetcher is the slice of the profile repository the gate needs.
type ProfileFetcher interface {
	FetchMine(ctx context.Context, userID string) (*profile.Profile, error)
}

// Gate is the per-request access-control middleware. It resolves the session
// exactly once, applies any staged cookie rotation, and then either passes
// the request on or redirects.
//
// Transport faults fail open: a request the gate cannot evaluate proceeds as
// anonymous, and anonymous visitors keep their public access. Authorization
// checks fail closed: a privileged route never renders on an error path.
type Gate struct {
	provider identity.Provider
	profiles ProfileFetcher
	logger   *logging.Logger
}

// New creates a Gate.
func New(provider identity.Provider, profiles ProfileFetcher, logger *logging.Logger) *Gate {
	return &Gate{
		provider: provider,
		profiles: profiles,
		logger:   logger.With("component", "gate"),
	}
}

// Middleware wraps next with the routing gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := Classify(r.URL.Path)

		jar := session.NewJar(r)

		// Privileged evaluation must never fall through on a panic,
		// including one raised while resolving the session itself.
		if class == ClassAdmin || class == ClassProtected {
			defer func() {
				if rec := recover(); rec != nil {
					g.logger.Error("panic evaluating privileged route", "path", r.URL.Path, "panic", rec)
					jar.Apply(w)
					redirectToLogin(w, r)
				}
			}()
		}

		ident := g.resolve(r.Context(), jar)

		if ident != nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
		}

		switch class {
		case ClassAuthFlow:
			if ident != nil {
				jar.Apply(w)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

		case ClassProtected:
			if ident == nil {
				jar.Apply(w)
				redirectToLogin(w, r)
				return
			}

		case ClassAdmin:
			if ident == nil {
				jar.Apply(w)
				redirectToLogin(w, r)
				return
			}
			if !g.isAdmin(r.Context(), ident) {
				jar.Apply(w)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

		case ClassAPI, ClassPublic:
			// Pass through. API endpoints answer in JSON themselves.
		}

		jar.Apply(w)
		next.ServeHTTP(w, r)
	})
}

// resolve turns the request's cookies into an identity, staging any rotated
// cookies on the jar. Failures resolve to anonymous.
func (g *Gate) resolve(ctx context.Context, jar *session.Jar) *identity.Identity {
	res, err := g.provider.ResolveSession(ctx, jar.Read())
	if err != nil {
		g.logger.Error("session resolution failed", "error", err)
		return nil
	}
	for _, sc := range res.SetCookies {
		jar.Stage(sc)
	}
	return res.Identity
}

// isAdmin checks the caller's own profile for a back-office role. Any
// failure to establish the role denies.
func (g *Gate) isAdmin(ctx context.Context, ident *identity.Identity) bool {
	prof, err := g.profiles.FetchMine(ctx, ident.ID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			g.logger.Error("profile fetch failed on admin route", "user_id", ident.ID, "error", err)
		}
		return false
	}
	return authz.IsAdmin(prof.Role)
}

// redirectToLogin sends the visitor to sign-in, preserving where they were
// headed so the login page can send them back.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login?redirect_to=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, target, http.StatusFound)
}
