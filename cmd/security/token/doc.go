// Package token provides the renewal-secret primitives: generation of opaque
// high-entropy secrets and their one-way hashing for server-side storage.
//
// Plaintext secrets only ever exist in the response to the client. The store
// keeps a 64-char hex digest:
//   - HMAC-SHA256(secret, key) when a key is configured (production).
//   - SHA-256(secret) otherwise (development only).
//
// Environment:
//   - TALENTHUB_TOKEN_HMAC_KEY: when set, enables HMAC mode.
package token
