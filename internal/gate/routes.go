package gate

import "strings"

// RouteClass is the access class of a request path.
type RouteClass string

const (
	// ClassAdmin covers the back-office under /admin.
	ClassAdmin RouteClass = "admin"

	// ClassProtected covers signed-in shopper pages.
	ClassProtected RouteClass = "protected"

	// ClassAuthFlow covers the sign-in and recovery pages, which a
	// signed-in visitor has no business on.
	ClassAuthFlow RouteClass = "auth_flow"

	// ClassAPI covers programmatic endpoints. The gate passes these
	// through; they answer in JSON, not redirects.
	ClassAPI RouteClass = "api"

	// ClassPublic is everything else.
	ClassPublic RouteClass = "public"
)

// Prefix sets, checked in precedence order. Classification is total: every
// path lands in exactly one class.
var (
	adminPrefixes     = []string{"/admin"}
	protectedPrefixes = []string{"/account", "/checkout"}
	authFlowPrefixes  = []string{"/login", "/signup", "/forgot-password", "/update-password"}
	apiPrefixes       = []string{"/api", "/auth"}
)

// Classify maps a request path to its access class. Precedence is
// admin, protected, auth-flow, api, public; the first match wins.
func Classify(path string) RouteClass {
	switch {
	case matchesAny(path, adminPrefixes):
		return ClassAdmin
	case matchesAny(path, protectedPrefixes):
		return ClassProtected
	case matchesAny(path, authFlowPrefixes):
		return ClassAuthFlow
	case matchesAny(path, apiPrefixes):
		return ClassAPI
	default:
		return ClassPublic
	}
}

// matchesAny reports whether the path equals a prefix or sits beneath it.
// "/checkout2" must not match "/checkout".
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
