// Package profile stores the application-level record attached to each
// account: display fields plus the role that drives authorization. A missing
// profile is a normal condition (authenticated but role-less), and callers
// that gate on role must treat it as no privilege.
package profile
