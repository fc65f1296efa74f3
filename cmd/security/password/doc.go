// Package password verifies stored credential hashes and produces new ones.
//
// Two encodings are understood by Verify:
//   - Argon2id PHC strings: $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>
//   - bcrypt modular-crypt strings ($2a$, $2b$, $2y$) written by older deployments.
//
// Hash always emits Argon2id. Stored hashes are untrusted input and are parsed
// strictly; cost parameters far above the configured ones are refused.
package password
