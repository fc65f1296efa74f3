package accesstoken

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid access token config")
)
