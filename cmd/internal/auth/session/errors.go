package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a presented secret or record ID matches nothing.
	ErrNotFound = errors.New("renewal credential not found")

	// ErrExpired is returned when the credential is past its expiry.
	ErrExpired = errors.New("renewal credential expired")

	// ErrRevoked is returned when the credential was revoked.
	ErrRevoked = errors.New("renewal credential revoked")

	// ErrAlreadyRetired is returned when the credential was rotated moments ago
	// (a lost race or a client retry inside the grace window).
	ErrAlreadyRetired = errors.New("renewal credential already retired")

	// ErrReuseDetected is returned when a retired credential is replayed.
	// The identity's active credentials have been revoked by then.
	ErrReuseDetected = errors.New("renewal credential reuse detected")

	// ErrIdentityInactive is returned when the owning identity is missing or disabled.
	ErrIdentityInactive = errors.New("identity inactive")

	// ErrNotActive is returned by stores when a conditional transition found
	// the record no longer active.
	ErrNotActive = errors.New("renewal credential not active")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)

// ReuseError carries the details of a reuse lockdown.
type ReuseError struct {
	IdentityID string
	ChainID    string
	RecordID   string
	Revoked    int64
}

func (e *ReuseError) Error() string {
	return fmt.Sprintf("%s: identity %s chain %s (%d revoked)", ErrReuseDetected, e.IdentityID, e.ChainID, e.Revoked)
}

func (e *ReuseError) Unwrap() error { return ErrReuseDetected }

// RequiresReauth reports whether err is a renewal failure that the client can
// only recover from by logging in again.
func RequiresReauth(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrRevoked) ||
		errors.Is(err, ErrAlreadyRetired) ||
		errors.Is(err, ErrReuseDetected) ||
		errors.Is(err, ErrIdentityInactive)
}
