package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/idx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

var (
	ErrAuthenticatorNotFound = errors.New("no active authenticator for user")
	ErrVerificationFailed    = errors.New("credential verification failed")
	ErrReplayDetected        = errors.New("signature counter did not advance")
)

// RegisteredCredential is what a successful registration verification yields.
type RegisteredCredential struct {
	CredentialID string // base64url
	PublicKey    []byte // COSE
	Counter      uint32
}

// CeremonyVerifier is the cryptographic half of the WebAuthn ceremonies. It
// builds browser-facing option documents around a challenge the caller owns
// and verifies the browser's responses against that challenge. It never
// touches storage.
type CeremonyVerifier interface {
	RegistrationOptions(user domain.User, challenge, rpID, origin string) (json.RawMessage, error)
	VerifyRegistration(user domain.User, challenge, rpID, origin string, response []byte) (RegisteredCredential, error)
	AuthenticationOptions(cred domain.Credential, challenge, rpID, origin string) (json.RawMessage, error)
	VerifyAuthentication(user domain.User, cred domain.Credential, challenge, rpID, origin string, response []byte) (uint32, error)
}

// PasskeyService drives the registration and authentication ceremonies.
// Every terminal path of a verification consumes the challenge; the close
// and the credential mutation always commit together.
type PasskeyService struct {
	Store      store.Store
	Verifier   CeremonyVerifier
	Origins    *OriginResolver
	Challenges *ChallengeService
}

// RegistrationOptions starts a registration ceremony: issues a fresh
// challenge (superseding any prior one) and returns the creation options
// document for the browser.
func (s *PasskeyService) RegistrationOptions(ctx context.Context, userID, origin string) (json.RawMessage, error) {
	log := slogx.FromContext(ctx)

	// 1. Fail closed on origin before anything is written.
	rpID, canonical, err := s.Origins.Resolve(origin)
	if err != nil {
		log.Warn("registration options refused for origin",
			slog.String("user_id", userID),
			slog.String("origin", origin),
		)
		return nil, err
	}

	// 2. The user must exist; the ceremony is never discoverable here.
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return nil, err
	}

	// 3. Issue the challenge. This supersedes any in-flight ceremony.
	challenge, err := s.Challenges.Issue(ctx, userID, domain.ChallengeTypeRegistration, rpID, canonical)
	if err != nil {
		return nil, err
	}

	// 4. Wrap it in the browser-facing options document.
	opts, err := s.Verifier.RegistrationOptions(user, challenge.Value, rpID, canonical)
	if err != nil {
		log.Error("failed to build registration options", slog.Any("error", err))
		return nil, err
	}
	return opts, nil
}

// VerifyRegistration finishes a registration ceremony. On success the new
// credential replaces every prior one for the user; on failure the challenge
// is still consumed with the failure recorded.
func (s *PasskeyService) VerifyRegistration(ctx context.Context, userID, origin string, response []byte) error {
	log := slogx.FromContext(ctx)

	rpID, canonical, err := s.Origins.Resolve(origin)
	if err != nil {
		log.Warn("registration verify refused for origin",
			slog.String("user_id", userID),
			slog.String("origin", origin),
		)
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return err
	}

	// 1. There must be a live registration challenge to answer.
	challenge, err := s.Challenges.FindActive(ctx, userID, domain.ChallengeTypeRegistration)
	if err != nil {
		return err
	}

	// 2. Crypto verification happens outside the transaction; it reads
	// nothing from storage.
	registered, verifyErr := s.Verifier.VerifyRegistration(user, challenge.Value, rpID, canonical, response)
	if verifyErr != nil {
		log.Warn("registration verification failed",
			slog.String("user_id", userID),
			slog.String("challenge_id", challenge.ID),
			slog.Any("error", verifyErr),
		)
		if err := s.Challenges.Close(ctx, challenge.ID, domain.ChallengeOutcome{
			Success: false,
			Detail:  "verification failed",
		}); err != nil {
			return err
		}
		return ErrVerificationFailed
	}

	// 3. Consume the challenge and swap the credential set in one commit.
	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Challenges().CloseChallenge(ctx, challenge.ID, true, "registered"); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost a race with a supersede or another verify.
				return ErrChallengeNotFound
			}
			return err
		}

		deactivated, err := tx.Credentials().DeactivateUserCredentials(ctx, userID)
		if err != nil {
			return err
		}
		if deactivated > 0 {
			log.Debug("deactivated prior credentials",
				slog.String("user_id", userID),
				slog.Int64("count", deactivated),
			)
		}

		return tx.Credentials().CreateCredential(ctx, domain.Credential{
			ID:           idx.New().String(),
			UserID:       userID,
			CredentialID: registered.CredentialID,
			PublicKey:    registered.PublicKey,
			Counter:      registered.Counter,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	if err != nil {
		log.Error("failed to store registered credential",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("passkey registered",
		slog.String("user_id", userID),
		slog.String("credential_id", registered.CredentialID),
	)
	return nil
}

// AuthenticationOptions starts an authentication ceremony against the user's
// active credential.
func (s *PasskeyService) AuthenticationOptions(ctx context.Context, userID, origin string) (json.RawMessage, error) {
	log := slogx.FromContext(ctx)

	rpID, canonical, err := s.Origins.Resolve(origin)
	if err != nil {
		log.Warn("authentication options refused for origin",
			slog.String("user_id", userID),
			slog.String("origin", origin),
		)
		return nil, err
	}

	cred, err := s.Store.Credentials().GetActiveCredentialByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthenticatorNotFound
		}
		return nil, err
	}

	challenge, err := s.Challenges.Issue(ctx, userID, domain.ChallengeTypeAuthentication, rpID, canonical)
	if err != nil {
		return nil, err
	}

	opts, err := s.Verifier.AuthenticationOptions(cred, challenge.Value, rpID, canonical)
	if err != nil {
		log.Error("failed to build authentication options", slog.Any("error", err))
		return nil, err
	}
	return opts, nil
}

// VerifyAuthentication finishes an authentication ceremony. The challenge is
// consumed on every terminal path, including a missing authenticator and a
// detected replay.
func (s *PasskeyService) VerifyAuthentication(ctx context.Context, userID, origin string, response []byte) error {
	log := slogx.FromContext(ctx)

	rpID, canonical, err := s.Origins.Resolve(origin)
	if err != nil {
		log.Warn("authentication verify refused for origin",
			slog.String("user_id", userID),
			slog.String("origin", origin),
		)
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return err
	}

	// 1. There must be a live authentication challenge to answer.
	challenge, err := s.Challenges.FindActive(ctx, userID, domain.ChallengeTypeAuthentication)
	if err != nil {
		return err
	}

	// 2. A deactivated or never-registered authenticator still consumes the
	// challenge; a stray assertion must not leave the ceremony answerable.
	cred, err := s.Store.Credentials().GetActiveCredentialByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := s.Challenges.Close(ctx, challenge.ID, domain.ChallengeOutcome{
				Success: false,
				Detail:  "authenticator not found",
			}); err != nil {
				return err
			}
			return ErrAuthenticatorNotFound
		}
		return err
	}

	// 3. Crypto verification, outside the transaction.
	newCounter, verifyErr := s.Verifier.VerifyAuthentication(user, cred, challenge.Value, rpID, canonical, response)
	if verifyErr != nil {
		log.Warn("authentication verification failed",
			slog.String("user_id", userID),
			slog.String("challenge_id", challenge.ID),
			slog.Any("error", verifyErr),
		)
		if err := s.Challenges.Close(ctx, challenge.ID, domain.ChallengeOutcome{
			Success: false,
			Detail:  "verification failed",
		}); err != nil {
			return err
		}
		return ErrVerificationFailed
	}

	// 4. Counter monotonicity. Authenticators without a counter always
	// report zero; the check only bites once either side is non-zero.
	if (newCounter != 0 || cred.Counter != 0) && newCounter <= cred.Counter {
		log.Warn("replay detected",
			slog.String("user_id", userID),
			slog.String("credential_id", cred.CredentialID),
			slog.Uint64("stored_counter", uint64(cred.Counter)),
			slog.Uint64("reported_counter", uint64(newCounter)),
		)
		if err := s.Challenges.Close(ctx, challenge.ID, domain.ChallengeOutcome{
			Success: false,
			Detail:  "replay detected",
		}); err != nil {
			return err
		}
		return ErrReplayDetected
	}

	// 5. Consume the challenge and advance the counter in one commit.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Challenges().CloseChallenge(ctx, challenge.ID, true, "authenticated"); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		return tx.Credentials().UpdateCredentialCounter(ctx, cred.ID, newCounter)
	})
	if err != nil {
		log.Error("failed to finalize authentication",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("passkey authenticated",
		slog.String("user_id", userID),
		slog.String("credential_id", cred.CredentialID),
	)
	return nil
}
