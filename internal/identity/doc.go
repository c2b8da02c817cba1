// Package identity implements accounts, sessions, and the token exchange
// behind them.
//
// The provider surface is cookie-shaped: callers hand in the request's
// cookies and get back identity plus any cookie mutations to apply. Access
// tokens are short-lived JWTs; refresh tokens are opaque, stored hashed, and
// rotated in families so reuse of a rotated-out token revokes the whole
// lineage. One-time emailed codes drive sign-up confirmation and password
// recovery through the callback exchange.
package identity
