// Package session owns the renewal-credential lifecycle: initial issue of a
// chain at login, single-use rotation with reuse detection, and revocation.
//
// Every status change is a conditional update on a still-active record, so
// concurrent refreshes of the same credential produce exactly one successor.
// Plaintext renewal secrets are returned to the caller once and only their
// hash is stored.
package session
