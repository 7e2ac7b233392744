package domain

import "time"

// ChallengeType distinguishes the two WebAuthn ceremonies.
type ChallengeType string

const (
	ChallengeTypeRegistration   ChallengeType = "REGISTRATION"
	ChallengeTypeAuthentication ChallengeType = "AUTHENTICATION"
)

// Challenge is one in-flight WebAuthn ceremony for one user.
//
// Invariant: for a given user at most one row is active && !used at any
// instant, across both types. Issuing a new challenge supersedes all prior
// active ones in the same transaction.
type Challenge struct {
	ID     string
	UserID string
	// Value is the random challenge in its canonical base64url encoding.
	Value string
	Type  ChallengeType

	Active bool
	Used   bool
	// VerificationSuccess is nil until the challenge is closed by a
	// verification attempt. A superseded challenge stays nil forever.
	VerificationSuccess *bool

	// Relying-party context captured at issue time.
	RPID   string
	Origin string
	// Detail records the closing outcome ("registered", "replay detected", ...).
	Detail string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge lease has lapsed at the given instant.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeOutcome describes how a verification attempt ended. Exactly one
// outcome is recorded per challenge, on every terminal path.
type ChallengeOutcome struct {
	Success bool
	Detail  string
}
