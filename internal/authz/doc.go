// Package authz defines the role-permission model.
//
// The model is a static matrix mapping (feature, action) pairs to the roles
// allowed to perform them. Lookups are pure data access with no network or
// state dependency, and an unconfigured pair always denies (fail-closed).
package authz
