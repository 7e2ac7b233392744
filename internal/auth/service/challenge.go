package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/cryptox"
	"github.com/pushprotocol/authd/pkg/idx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

// ChallengeLease is how long a WebAuthn challenge stays answerable.
const ChallengeLease = 5 * time.Minute

var (
	ErrChallengeNotFound = errors.New("no active challenge for user")

	// ErrIntegrityFault means the at-most-one-active-challenge invariant was
	// observed broken. It is a server fault, never a client error.
	ErrIntegrityFault = errors.New("challenge uniqueness invariant violated")
)

// ChallengeService owns challenge rows for WebAuthn ceremonies. Issuing a
// challenge supersedes every prior active one for the user in the same
// transaction, so at most one challenge is answerable per user at any time.
type ChallengeService struct {
	Store store.Store
}

// Issue mints a fresh challenge for the user and retires any still-active
// predecessors, across both ceremony types.
func (s *ChallengeService) Issue(
	ctx context.Context,
	userID string,
	typ domain.ChallengeType,
	rpID string,
	origin string,
) (domain.Challenge, error) {
	log := slogx.FromContext(ctx)

	// 1. Generate the challenge value up front; only the DB work needs the tx.
	value, err := cryptox.GenerateChallenge()
	if err != nil {
		log.Error("failed to generate challenge", slog.Any("error", err))
		return domain.Challenge{}, err
	}

	now := time.Now().UTC()
	challenge := domain.Challenge{
		ID:        idx.New().String(),
		UserID:    userID,
		Value:     value,
		Type:      typ,
		Active:    true,
		Used:      false,
		RPID:      rpID,
		Origin:    origin,
		CreatedAt: now,
		ExpiresAt: now.Add(ChallengeLease),
	}

	// 2. Supersede-then-insert atomically. A crash between the two must not
	// leave the user with zero or two active challenges.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		superseded, err := tx.Challenges().SupersedeActiveChallenges(ctx, userID)
		if err != nil {
			return err
		}
		if superseded > 0 {
			log.Debug("superseded stale challenges",
				slog.String("user_id", userID),
				slog.Int64("count", superseded),
			)
		}
		return tx.Challenges().CreateChallenge(ctx, challenge)
	})
	if err != nil {
		log.Error("failed to issue challenge",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return domain.Challenge{}, err
	}

	log.Debug("challenge issued",
		slog.String("challenge_id", challenge.ID),
		slog.String("user_id", userID),
		slog.String("type", string(typ)),
	)
	return challenge, nil
}

// FindActive returns the user's single live challenge of the given type.
// Observing more than one live row reports ErrIntegrityFault.
func (s *ChallengeService) FindActive(
	ctx context.Context,
	userID string,
	typ domain.ChallengeType,
) (domain.Challenge, error) {
	log := slogx.FromContext(ctx)

	challenges, err := s.Store.Challenges().ListActiveChallenges(ctx, userID, typ, time.Now().UTC())
	if err != nil {
		log.Error("failed to list active challenges", slog.Any("error", err))
		return domain.Challenge{}, err
	}

	switch len(challenges) {
	case 0:
		return domain.Challenge{}, ErrChallengeNotFound
	case 1:
		return challenges[0], nil
	default:
		log.Error("multiple active challenges for user",
			slog.String("user_id", userID),
			slog.Int("count", len(challenges)),
		)
		return domain.Challenge{}, ErrIntegrityFault
	}
}

// Close records the outcome and retires the challenge. Closing a challenge
// that is already closed is a no-op; an outcome is never rewritten.
func (s *ChallengeService) Close(ctx context.Context, id string, outcome domain.ChallengeOutcome) error {
	err := s.Store.Challenges().CloseChallenge(ctx, id, outcome.Success, outcome.Detail)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
