// Package client holds the observable user state a connected front end
// mirrors: current identity, profile, and loading flag, kept fresh by the
// provider's session-change events.
package client
