package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/merchkit/storefront-core/internal/infrastructure/config"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/session"
)

// refreshWindow is how close to expiry an access token may get before a
// read transparently rotates the session.
const refreshWindow = time.Minute

// LocalProvider is the built-in identity provider: accounts, refresh tokens,
// and one-time codes in SQLite, access tokens as short-lived JWTs carried in
// cookies.
//
// Cookie names are derived from the configured prefix; everything outside
// this package treats them as opaque values to forward, never parse.
type LocalProvider struct {
	cfg     config.IdentityConfig
	siteURL string
	users   UserRepository
	tokens  TokenRepository
	codes   CodeRepository
	mailer  Mailer
	hub     *EventHub
	logger  *logging.Logger
}

// compile-time interface check
var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider backed by the given database.
func NewLocalProvider(cfg config.IdentityConfig, siteURL string, db *sql.DB, mailer Mailer, logger *logging.Logger) *LocalProvider {
	return &LocalProvider{
		cfg:     cfg,
		siteURL: siteURL,
		users:   NewUserRepository(db),
		tokens:  NewTokenRepository(db),
		codes:   NewCodeRepository(db),
		mailer:  mailer,
		hub:     NewEventHub(),
		logger:  logger.With("component", "identity"),
	}
}

// accessCookie returns the name of the access token cookie.
func (p *LocalProvider) accessCookie() string {
	return p.cfg.CookiePrefix + "-access-token"
}

// refreshCookie returns the name of the refresh token cookie.
func (p *LocalProvider) refreshCookie() string {
	return p.cfg.CookiePrefix + "-refresh-token"
}

// ResolveSession validates or transparently refreshes the session carried by
// the inbound cookies.
//
// No usable session (absent, expired beyond refresh, revoked, reused) yields
// an anonymous Resolved with a nil error; only storage faults return errors,
// so the caller can apply its own fail-open/fail-closed policy.
func (p *LocalProvider) ResolveSession(ctx context.Context, cookies []session.Cookie) (*Resolved, error) {
	access := cookieValue(cookies, p.accessCookie())
	refresh := cookieValue(cookies, p.refreshCookie())

	if access != "" {
		claims, err := ParseToken(access, p.cfg.JWTSecret)
		if err == nil && time.Until(claims.ExpiresAt.Time) > refreshWindow {
			return &Resolved{
				Session: &Session{
					AccessToken:  access,
					RefreshToken: refresh,
					ExpiresAt:    claims.ExpiresAt.Time,
				},
				Identity: &Identity{ID: claims.Subject, Email: claims.Email},
			}, nil
		}
		// Invalid or near-expiry access token: fall through to refresh.
	}

	if refresh == "" {
		return &Resolved{}, nil // anonymous
	}

	res, err := p.refreshSession(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if res.Identity != nil {
		p.hub.Broadcast(Event{Type: EventTokenRefreshed, Identity: res.Identity})
	}
	return res, nil
}

// refreshSession rotates the refresh token and issues a new access token.
// Any authorization-shaped failure resolves to anonymous rather than error.
func (p *LocalProvider) refreshSession(ctx context.Context, rawRefresh string) (*Resolved, error) {
	stored, err := p.tokens.GetByTokenHash(ctx, HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return &Resolved{}, nil
		}
		return nil, fmt.Errorf("looking up refresh token: %w", err)
	}

	if stored.Revoked {
		// Reuse of a revoked token: assume theft and kill the whole family.
		if err := p.tokens.RevokeFamily(ctx, stored.FamilyID); err != nil {
			p.logger.Error("revoking token family after reuse", "error", err)
		}
		p.logger.Warn("refresh token reuse detected", "user_id", stored.UserID, "family_id", stored.FamilyID)
		return &Resolved{}, nil
	}

	if time.Now().After(stored.ExpiresAt) {
		return &Resolved{}, nil
	}

	user, err := p.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return &Resolved{}, nil
		}
		return nil, fmt.Errorf("loading user for refresh: %w", err)
	}

	newRaw, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	newToken := &RefreshToken{
		UserID:    user.ID,
		FamilyID:  stored.FamilyID,
		TokenHash: HashToken(newRaw),
		ExpiresAt: time.Now().Add(time.Duration(p.cfg.RefreshTokenTTL) * time.Minute),
	}
	if err := p.tokens.RotateRefreshToken(ctx, stored.ID, newToken); err != nil {
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}

	return p.buildSession(user, newRaw, stored.FamilyID)
}

// SignInWithPassword exchanges an email/password pair for a Session.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Resolved, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, credentialError(CodeInvalidCredentials, "Invalid login credentials")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, credentialError(CodeInvalidCredentials, "Invalid login credentials")
	}

	if !user.EmailConfirmed {
		return nil, credentialError(CodeEmailNotConfirmed, "Email not confirmed")
	}

	res, err := p.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	p.logger.Info("password sign-in", "user_id", user.ID)
	p.hub.Broadcast(Event{Type: EventSignedIn, Identity: res.Identity})
	return res, nil
}

// SignUp creates an account and sends an email-confirmation code. No session
// exists until the code is exchanged at the callback endpoint.
func (p *LocalProvider) SignUp(ctx context.Context, params SignUpParams) error {
	hash, err := HashPassword(params.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: hash,
	}
	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return credentialError(CodeUserExists, "User already registered")
		}
		return fmt.Errorf("creating user: %w", err)
	}

	link, err := p.issueCode(ctx, user, PurposeSignup, "/")
	if err != nil {
		return err
	}
	if err := p.mailer.SendEmailConfirmation(ctx, user.Email, link); err != nil {
		return fmt.Errorf("sending confirmation: %w", err)
	}

	p.logger.Info("sign-up", "user_id", user.ID)
	return nil
}

// RequestPasswordReset sends an out-of-band recovery code.
//
// Unknown emails surface the provider's error text, which leaks account
// existence. That matches the deployed behavior this core replaces; callers
// must not paper over it without a product decision.
func (p *LocalProvider) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return credentialError(CodeUserNotFound, "User not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	link, err := p.issueCode(ctx, user, PurposeRecovery, redirectTo)
	if err != nil {
		return err
	}
	if err := p.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("sending reset: %w", err)
	}

	p.logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ExchangeCode turns a one-time emailed code into a Session.
func (p *LocalProvider) ExchangeCode(ctx context.Context, code string) (*Resolved, error) {
	stored, err := p.codes.Consume(ctx, HashToken(code))
	if err != nil {
		if errors.Is(err, ErrCodeInvalid) || errors.Is(err, ErrCodeExpired) || errors.Is(err, ErrCodeConsumed) {
			return nil, credentialError(CodeInvalidCode, "Email link is invalid or has expired")
		}
		return nil, fmt.Errorf("consuming code: %w", err)
	}

	user, err := p.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, credentialError(CodeInvalidCode, "Email link is invalid or has expired")
		}
		return nil, fmt.Errorf("loading user for code: %w", err)
	}

	if !user.EmailConfirmed {
		if err := p.users.ConfirmEmail(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("confirming email: %w", err)
		}
	}

	res, err := p.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	p.logger.Info("code exchanged", "user_id", user.ID, "purpose", stored.Purpose)
	p.hub.Broadcast(Event{Type: EventSignedIn, Identity: res.Identity})
	return res, nil
}

// UpdatePassword sets a new credential for the resolved subject and revokes
// every refresh-token family except the session's own.
func (p *LocalProvider) UpdatePassword(ctx context.Context, res *Resolved, newPassword string) error {
	if res == nil || res.Identity == nil {
		return credentialError(CodeInvalidCredentials, "Auth session missing")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := p.users.UpdatePassword(ctx, res.Identity.ID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return credentialError(CodeUserNotFound, "User not found")
		}
		return fmt.Errorf("updating password: %w", err)
	}

	keep := ""
	if res.Session != nil {
		keep = res.Session.familyID
	}
	if err := p.tokens.RevokeAllForUserExcept(ctx, res.Identity.ID, keep); err != nil {
		return fmt.Errorf("revoking other sessions: %w", err)
	}

	p.logger.Info("password updated", "user_id", res.Identity.ID)
	return nil
}

// SignOut terminates the session carried by the cookies and returns the
// clearing mutations. Terminating an already-dead session is not an error.
func (p *LocalProvider) SignOut(ctx context.Context, cookies []session.Cookie) ([]session.SetCookie, error) {
	var ident *Identity

	if access := cookieValue(cookies, p.accessCookie()); access != "" {
		if claims, err := ParseToken(access, p.cfg.JWTSecret); err == nil {
			ident = &Identity{ID: claims.Subject, Email: claims.Email}
		}
	}

	if refresh := cookieValue(cookies, p.refreshCookie()); refresh != "" {
		stored, err := p.tokens.GetByTokenHash(ctx, HashToken(refresh))
		if err == nil {
			if err := p.tokens.RevokeFamily(ctx, stored.FamilyID); err != nil {
				return nil, fmt.Errorf("revoking session: %w", err)
			}
			if ident == nil {
				ident = &Identity{ID: stored.UserID}
			}
		} else if !errors.Is(err, ErrTokenInvalid) {
			return nil, fmt.Errorf("looking up refresh token: %w", err)
		}
	}

	if ident != nil {
		p.logger.Info("sign-out", "user_id", ident.ID)
	}
	p.hub.Broadcast(Event{Type: EventSignedOut, Identity: ident})

	return p.clearingCookies(), nil
}

// Subscribe registers for session-change events.
func (p *LocalProvider) Subscribe() (<-chan Event, func()) {
	return p.hub.Subscribe()
}

// Hub exposes the event hub for transports that relay events onward.
func (p *LocalProvider) Hub() *EventHub {
	return p.hub
}

// createSession issues a fresh access/refresh pair with a new family.
func (p *LocalProvider) createSession(ctx context.Context, user *User) (*Resolved, error) {
	raw, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	token := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(time.Duration(p.cfg.RefreshTokenTTL) * time.Minute),
	}
	if err := p.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	return p.buildSession(user, raw, token.FamilyID)
}

// buildSession assembles the Session, Identity, and cookie mutations for a
// user holding the given raw refresh token.
func (p *LocalProvider) buildSession(user *User, rawRefresh, familyID string) (*Resolved, error) {
	access, err := GenerateAccessToken(user, p.cfg.JWTSecret, p.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(time.Duration(p.cfg.AccessTokenTTL) * time.Minute)
	refreshMaxAge := p.cfg.RefreshTokenTTL * 60

	return &Resolved{
		Session: &Session{
			AccessToken:  access,
			RefreshToken: rawRefresh,
			ExpiresAt:    expires,
			familyID:     familyID,
		},
		Identity: &Identity{ID: user.ID, Email: user.Email},
		SetCookies: []session.SetCookie{
			{
				Name:     p.accessCookie(),
				Value:    access,
				Path:     "/",
				MaxAge:   refreshMaxAge,
				HTTPOnly: true,
				Secure:   p.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			},
			{
				Name:     p.refreshCookie(),
				Value:    rawRefresh,
				Path:     "/",
				MaxAge:   refreshMaxAge,
				HTTPOnly: true,
				Secure:   p.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			},
		},
	}, nil
}

// clearingCookies returns mutations that delete the session cookies.
func (p *LocalProvider) clearingCookies() []session.SetCookie {
	expire := func(name string) session.SetCookie {
		return session.SetCookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   p.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		}
	}
	return []session.SetCookie{expire(p.accessCookie()), expire(p.refreshCookie())}
}

// issueCode creates a one-time code for the user and returns the callback
// link to embed in the outgoing mail.
func (p *LocalProvider) issueCode(ctx context.Context, user *User, purpose CodePurpose, redirectTo string) (string, error) {
	raw, err := GenerateRefreshToken() // same entropy requirements as refresh tokens
	if err != nil {
		return "", err
	}

	code := &OneTimeCode{
		UserID:    user.ID,
		CodeHash:  HashToken(raw),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(time.Duration(p.cfg.CodeTTL) * time.Minute),
	}
	if err := p.codes.Create(ctx, code); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/auth/callback?code=%s&next=%s",
		p.siteURL, url.QueryEscape(raw), url.QueryEscape(redirectTo))
	return link, nil
}

// cookieValue returns the value of the named cookie from an inbound set.
func cookieValue(cookies []session.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
