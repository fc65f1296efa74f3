package password

import "strings"

// Scheme identifies the encoding of a stored hash.
type Scheme string

const (
	SchemeUnknown  Scheme = ""
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
)

// Detect returns the scheme of encoded by prefix only.
func Detect(encoded string) Scheme {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

// Verify checks whether password matches encoded.
// Returns (true, nil) for a match, (false, nil) for mismatch and
// (false, ErrInvalidHash or ErrUnsupportedHash) when the hash cannot be used.
func (c Config) Verify(encoded, password string) (bool, error) {
	switch Detect(encoded) {
	case SchemeArgon2id:
		return c.verifyArgon2id(encoded, password)
	case SchemeBcrypt:
		return verifyBcrypt(encoded, password)
	default:
		if strings.HasPrefix(encoded, "$") {
			return false, ErrUnsupportedHash
		}
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encoded should be replaced with a fresh
// Argon2id hash under the current parameters.
func (c Config) NeedsRehash(encoded string) bool {
	if Detect(encoded) != SchemeArgon2id {
		return true
	}
	p, _, _, err := decodeArgon2id(encoded)
	if err != nil {
		return true
	}
	return p.MemoryKiB < c.Params.MemoryKiB ||
		p.Iterations < c.Params.Iterations ||
		p.KeyLength < c.Params.KeyLength
}
