package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxBcryptCost refuses pathological work factors in stored hashes.
const maxBcryptCost = 16

func verifyBcrypt(encoded, password string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil || cost > maxBcryptCost {
		return false, ErrInvalidHash
	}
	// bcrypt only looks at the first 72 bytes.
	if len(password) > 72 {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
