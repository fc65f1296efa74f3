package audit

import (
	"strings"
	"time"
)

// Outcome classifies an event.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFailure     Outcome = "failure"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeLockdown    Outcome = "lockdown"
)

// Stable action names.
const (
	ActionLoginSuccess       = "auth.login.success"
	ActionLoginFailed        = "auth.login.failed"
	ActionLoginRateLimited   = "auth.login.rate_limited"
	ActionRefreshSuccess     = "auth.refresh.success"
	ActionRefreshFailed      = "auth.refresh.failed"
	ActionRefreshRateLimited = "auth.refresh.rate_limited"
	ActionReuseDetected      = "auth.refresh.reuse_detected"
	ActionReplayInGrace      = "auth.refresh.replay_in_grace"
	ActionLogout             = "auth.logout"
	ActionLogoutAll          = "auth.logout_all"
)

// Shared failure reasons.
const (
	// ReasonInvalidCredentials is the only reason recorded for a failed login,
	// so the audit trail does not reveal whether the handle exists.
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonReplayInGrace      = "replay_within_grace"
	ReasonCSRFInvalid        = "csrf_invalid"
	ReasonMissingCredential  = "missing_credential"
	ReasonInternalError      = "internal_error"
)

// Source describes the client that caused an event.
type Source struct {
	IP        string
	UserAgent string
}

// Event is one audit record. IdentityID is nil for anonymous events
// (for example a login with an unknown handle).
type Event struct {
	Action     string
	Outcome    Outcome
	IdentityID *string
	ChainID    string
	Source     Source
	Reason     string
	Meta       map[string]any
	At         time.Time
}

// Identity returns a pointer suitable for Event.IdentityID; empty ids are anonymous.
func Identity(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}
