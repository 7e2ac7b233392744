package domain

import "time"

// User is the minimal identity record the auth flows need. Everything else
// about a user lives with the user-management service; the token and passkey
// cores only ever see the opaque ID.
type User struct {
	ID             string
	Provider       string // identity provider key, e.g. "github"
	ProviderUserID string
	Username       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
