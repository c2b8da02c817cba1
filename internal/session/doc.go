// Package session provides the cookie-backed session store.
//
// Session token material lives only in cookies whose names and encoding are
// owned by the identity provider; this package never interprets them, it
// only moves them between a request, a staging area, and the response.
//
// One Jar exists per request. Reads are lazy and idempotent; writes are
// staged and applied to the response exactly once, with last-write-wins
// semantics per cookie name.
package session
