// Package auth issues and verifies session tokens and carries the verified
// session through a request's context.
//
// Tokens are HS256 JWTs with a fixed 24 hour lifetime. No server-side record
// of issued tokens exists; signature and expiry are the only checks.
package auth
