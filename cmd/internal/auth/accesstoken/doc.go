// Package accesstoken issues and verifies short-lived, self-verifying access
// tokens. Verification needs only the key material and a clock: it never
// consults the renewal store, so a revoked session's access token stays valid
// until it expires.
//
// Two encodings are supported, selected at startup:
//   - HS256 JWT (github.com/golang-jwt/jwt/v5), the default.
//   - PASETO v4.public (Ed25519).
package accesstoken
