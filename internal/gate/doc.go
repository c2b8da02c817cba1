// Package gate is the per-request access-control middleware. It classifies
// every path into exactly one access class, resolves the session once, and
// redirects or passes through accordingly.
//
// The policy split: transport failures fail open (an unevaluable request is
// anonymous, public pages still render), authorization failures fail closed
// (a privileged page never renders on an error path).
package gate
