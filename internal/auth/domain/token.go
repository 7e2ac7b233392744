package domain

import "time"

// TokenStatus is the stored lifecycle state of a bridging token. Expiry is
// derived from ExpiresAt at read time, never stored.
type TokenStatus string

const (
	TokenStatusPending TokenStatus = "pending"
	TokenStatusActive  TokenStatus = "active"
)

// BridgingToken ferries a freshly-minted session token from the server-side
// OAuth callback to the browser polling for it. The row id doubles as the
// OAuth "state" value passed through the redirect.
//
// Lifecycle: created pending by the login initiator; activated exactly once
// by the callback handler, which fills Payload; redeemed exactly once by the
// poller, which flips Used and is the only reader ever handed the payload.
type BridgingToken struct {
	ID          string
	Status      TokenStatus
	Payload     string // session token, empty until activated
	RedirectURI string // caller-supplied, advisory only
	Used        bool
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the token's lease has lapsed at the given instant.
func (t BridgingToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
