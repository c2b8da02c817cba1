package identity

import (
	"context"

	"github.com/merchkit/storefront-core/internal/session"
)

// Resolved is the outcome of an operation that touches a Session. SetCookies
// carries the cookie mutations the caller must stage on its response; names
// and encoding are provider-defined and opaque to every consumer.
type Resolved struct {
	Session    *Session
	Identity   *Identity
	SetCookies []session.SetCookie
}

// SignUpParams are the inputs to account creation. Local validation (format,
// length, confirmation match) happens before the provider is called.
type SignUpParams struct {
	Email    string
	Password string
	Name     string
}

// Provider is the identity provider contract.
//
// Expected failures (bad credential, expired code, duplicate email) are
// returned as *Error values; only transport or storage faults surface as
// ordinary errors. ResolveSession with no usable session returns an
// anonymous Resolved (nil Identity) and no error, so callers can apply
// fail-open-for-transport / fail-closed-for-authorization policy themselves.
type Provider interface {
	// ResolveSession validates or transparently refreshes the session carried
	// by the inbound cookies. Refreshing stages replacement cookies in the
	// returned Resolved.
	ResolveSession(ctx context.Context, cookies []session.Cookie) (*Resolved, error)

	// SignInWithPassword exchanges an email/password pair for a Session.
	SignInWithPassword(ctx context.Context, email, password string) (*Resolved, error)

	// SignUp creates an account and sends an email-confirmation code.
	// No session exists until the code is exchanged at the callback.
	SignUp(ctx context.Context, params SignUpParams) error

	// RequestPasswordReset sends an out-of-band recovery code. redirectTo is
	// the page the emailed link lands on.
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error

	// ExchangeCode turns a one-time emailed code into a Session.
	ExchangeCode(ctx context.Context, code string) (*Resolved, error)

	// UpdatePassword sets a new credential for the resolved subject and
	// revokes every other refresh-token family.
	UpdatePassword(ctx context.Context, res *Resolved, newPassword string) error

	// SignOut terminates the session carried by the cookies and returns the
	// clearing cookie mutations.
	SignOut(ctx context.Context, cookies []session.Cookie) ([]session.SetCookie, error)

	// Subscribe registers for session-change events. The returned cancel
	// func releases the subscription; after cancel the channel is closed.
	Subscribe() (<-chan Event, func())
}
