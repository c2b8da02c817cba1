// Package api provides the HTTP and WebSocket server for Storefront Core.
//
// It exposes the account operations under /auth, the JSON API under /api/v1,
// a session-event WebSocket relay, and a gate-wrapped page shell for
// everything else.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
