package store

import (
	"context"
	"errors"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and a Tx-scoped variant for the operations that must be
// atomic: token redemption, challenge supersede-then-insert, and the
// verification engine's close+mutate pairs.
type Store interface {
	Tokens() Tokens
	Challenges() Challenges
	Credentials() Credentials
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tokens interface {
	// CreateToken inserts a new bridging token (id is provided by app via ULID).
	CreateToken(ctx context.Context, t domain.BridgingToken) error

	// GetToken returns a token by id regardless of its state.
	GetToken(ctx context.Context, id string) (domain.BridgingToken, error)

	// ActivateToken fills the payload and moves status to active. The update
	// is conditional on status = pending so a second activation reports
	// ErrNotFound instead of silently overwriting the payload.
	ActivateToken(ctx context.Context, id string, payload string) error

	// ConsumeToken atomically flips used for a live token and returns its
	// payload. Missing, expired, and already-used ids all report
	// ErrNotFound; the update is conditional (WHERE used = 0 AND
	// expires_at > now) so exactly one concurrent caller wins.
	ConsumeToken(ctx context.Context, id string, now time.Time) (string, error)

	// DeleteExpiredTokens is optional housekeeping.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

type Challenges interface {
	// CreateChallenge inserts a new challenge row.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// SupersedeActiveChallenges marks every active, unused challenge for the
	// user (both ceremony types) as inactive and used, without recording a
	// verification outcome. Returns the number of rows superseded.
	SupersedeActiveChallenges(ctx context.Context, userID string) (int64, error)

	// ListActiveChallenges returns the active, unused, unexpired challenges
	// of the given type for the user, most recent first. The uniqueness
	// invariant means the caller expects at most one row; more than one is a
	// data-integrity fault the caller must surface.
	ListActiveChallenges(ctx context.Context, userID string, typ domain.ChallengeType, now time.Time) ([]domain.Challenge, error)

	// CloseChallenge records the verification outcome and retires the
	// challenge. Conditional on used = 0: closing an already-closed
	// challenge reports ErrNotFound and never reverses the flags.
	CloseChallenge(ctx context.Context, id string, success bool, detail string) error

	// DeleteExpiredChallenges is optional housekeeping.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) error
}

type Credentials interface {
	// CreateCredential inserts a new credential row (normally active).
	CreateCredential(ctx context.Context, c domain.Credential) error

	// DeactivateUserCredentials clears the active flag on every credential
	// of the user. Returns the number of rows deactivated.
	DeactivateUserCredentials(ctx context.Context, userID string) (int64, error)

	// GetActiveCredential returns the active credential matching the
	// external credential id. Deactivated rows never match.
	GetActiveCredential(ctx context.Context, userID, credentialID string) (domain.Credential, error)

	// GetActiveCredentialByUser returns the user's single active credential.
	GetActiveCredentialByUser(ctx context.Context, userID string) (domain.Credential, error)

	// UpdateCredentialCounter sets the signature counter unconditionally.
	// The monotonicity check belongs to the verification engine.
	UpdateCredentialCounter(ctx context.Context, id string, counter uint32) error

	// UpdateTransactionData sets the mnemonic-share payload on the user's
	// active credential.
	UpdateTransactionData(ctx context.Context, userID, transactionHash, iv string) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByProvider looks a user up by identity-provider subject.
	GetUserByProvider(ctx context.Context, provider, providerUserID string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error
}
