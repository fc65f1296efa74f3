// Package identity is the read-only view of the identity store used by
// authentication. It resolves login handles and identity IDs to the stored
// credential hash, role and active flag; it never writes identities.
//
// Two Directory implementations are provided: PostgresDirectory reads the
// identities table, FileDirectory serves a JSON file and reloads it when the
// file changes.
package identity
