package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/idx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

// TokenLease is how long a bridging token stays redeemable after creation.
const TokenLease = 10 * time.Minute

var (
	// ErrTokenUnauthorized is the single error the redemption path ever
	// returns for a token that cannot be redeemed. Missing, expired,
	// pending, and already-used tokens are deliberately indistinguishable
	// to the caller.
	ErrTokenUnauthorized = errors.New("token missing, expired or already used")

	ErrTokenNotFound      = errors.New("token not found or expired")
	ErrTokenAlreadyActive = errors.New("token has already been activated")
)

// TokenService manages bridging tokens: short-lived, single-use rows that
// ferry a session token from the OAuth callback to the browser polling for
// it. The token ID doubles as the OAuth state parameter.
type TokenService struct {
	Store store.Store
}

// Create mints a new pending bridging token with a fresh lease. The
// returned token's ID is handed to the identity provider as the state value.
func (s *TokenService) Create(ctx context.Context, redirectURI string) (domain.BridgingToken, error) {
	log := slogx.FromContext(ctx)

	now := time.Now().UTC()
	token := domain.BridgingToken{
		ID:          idx.New().String(),
		Status:      domain.TokenStatusPending,
		RedirectURI: redirectURI,
		Used:        false,
		CreatedAt:   now,
		ExpiresAt:   now.Add(TokenLease),
	}

	if err := s.Store.Tokens().CreateToken(ctx, token); err != nil {
		log.Error("failed to create bridging token", slog.Any("error", err))
		return domain.BridgingToken{}, err
	}

	log.Debug("bridging token created",
		slog.String("token_id", token.ID),
		slog.Time("expires_at", token.ExpiresAt),
	)
	return token, nil
}

// Activate fills the token's payload and moves it to active. This is called
// exactly once by the callback handler after the identity provider vouched
// for the user. Activating a token twice is an error, never an overwrite.
func (s *TokenService) Activate(ctx context.Context, id string, payload string) error {
	log := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Fetch the row so the failure modes stay distinguishable for
		// the callback handler. Redemption collapses them; activation
		// should not.
		token, err := tx.Tokens().GetToken(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("attempted to activate unknown bridging token",
					slog.String("token_id", id),
				)
				return ErrTokenNotFound
			}
			log.Error("failed to fetch bridging token", slog.Any("error", err))
			return err
		}

		if token.Status == domain.TokenStatusActive {
			log.Warn("attempted to re-activate bridging token",
				slog.String("token_id", id),
			)
			return ErrTokenAlreadyActive
		}

		if token.Expired(time.Now().UTC()) {
			log.Warn("attempted to activate expired bridging token",
				slog.String("token_id", id),
			)
			return ErrTokenNotFound
		}

		// 2. Flip to active. The update is conditional on status = pending,
		// so a concurrent activation that slipped in after our read still
		// loses here.
		if err := tx.Tokens().ActivateToken(ctx, id, payload); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenAlreadyActive
			}
			log.Error("failed to activate bridging token",
				slog.String("token_id", id),
				slog.Any("error", err),
			)
			return err
		}

		log.Debug("bridging token activated", slog.String("token_id", id))
		return nil
	})
}

// Redeem hands the payload to exactly one caller and burns the token. Every
// failure collapses to ErrTokenUnauthorized so a poller probing with guessed
// state values learns nothing about why a token is unusable.
func (s *TokenService) Redeem(ctx context.Context, id string) (string, error) {
	log := slogx.FromContext(ctx)

	// Single conditional UPDATE; no surrounding tx needed. Under concurrent
	// redemption exactly one caller's update matches.
	payload, err := s.Store.Tokens().ConsumeToken(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("bridging token redemption refused", slog.String("token_id", id))
			return "", ErrTokenUnauthorized
		}
		log.Error("failed to redeem bridging token",
			slog.String("token_id", id),
			slog.Any("error", err),
		)
		return "", err
	}

	log.Debug("bridging token redeemed", slog.String("token_id", id))
	return payload, nil
}
