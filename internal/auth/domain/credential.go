package domain

import "time"

// Credential is a registered passkey. Historical rows are kept deactivated;
// at most one row per user is active.
type Credential struct {
	ID     string
	UserID string
	// CredentialID is the authenticator-assigned identifier, base64url.
	CredentialID string
	// PublicKey is the COSE-encoded credential public key.
	PublicKey []byte
	// Counter is the authenticator signature counter. Monotonic
	// non-decreasing; a verification reporting a counter at or below this
	// value is treated as a replay.
	Counter uint32
	Active  bool

	// TransactionHash and IV belong to the mnemonic-share feature. They are
	// stored alongside the credential but never mutated by the ceremony
	// paths.
	TransactionHash string
	IV              string

	CreatedAt time.Time
	UpdatedAt time.Time
}
