package identity

import "context"

// Identity is a principal as seen by authentication.
type Identity struct {
	ID             string
	Handle         string
	CredentialHash string
	Role           string
	Active         bool
}

// Directory resolves identities. Implementations are safe for concurrent use.
type Directory interface {
	// LookupHandle resolves a login handle. Matching is case-insensitive.
	LookupHandle(ctx context.Context, handle string) (Identity, error)
	// LookupID resolves an identity by its stable ID.
	LookupID(ctx context.Context, id string) (Identity, error)
}
