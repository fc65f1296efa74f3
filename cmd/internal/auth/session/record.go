package session

import "time"

// Status is the lifecycle state of a renewal record. Transitions only go
// from Active to Retired or Revoked.
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
	StatusRevoked Status = "revoked"
)

// Reason explains the transition out of Active.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonRotation      Reason = "rotation"
	ReasonExpiry        Reason = "expiry"
	ReasonLogout        Reason = "logout"
	ReasonLogoutAll     Reason = "logout_all"
	ReasonReuseDetected Reason = "reuse_detected"
	ReasonAdmin         Reason = "admin"
)

// Record is one renewal credential. Empty strings are stored as NULL.
type Record struct {
	ID         string
	ChainID    string
	IdentityID string
	SecretHash string

	ParentID   string
	ReplacedBy string

	IssuedAt  time.Time
	ExpiresAt time.Time

	Status          Status
	Reason          Reason
	StatusChangedAt time.Time

	UserAgent string
	IP        string
}

// ClientMeta describes the client presenting a credential.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Issued is the result of a login or a rotation. RenewalSecret is plaintext
// and must reach the client exactly once; it is never logged.
type Issued struct {
	IdentityID string
	Role       string
	ChainID    string
	RecordID   string

	AccessToken string
	AccessExp   time.Time

	RenewalSecret string
	RenewalExp    time.Time
}
