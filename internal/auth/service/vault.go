package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/slogx"
)

// VaultService stores the encrypted mnemonic share alongside the user's
// active credential. The service never sees plaintext; the hash and IV are
// opaque and only decryptable client side after a passkey ceremony.
type VaultService struct {
	Store store.Store
}

// StoreTransactionData attaches the encrypted share to the user's active
// credential. A user without an active passkey has nowhere to put it.
func (s *VaultService) StoreTransactionData(ctx context.Context, userID, transactionHash, iv string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.Credentials().UpdateTransactionData(ctx, userID, transactionHash, iv)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuthenticatorNotFound
		}
		log.Error("failed to store transaction data",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Debug("transaction data stored", slog.String("user_id", userID))
	return nil
}

// GetTransactionData returns the encrypted share from the user's active
// credential.
func (s *VaultService) GetTransactionData(ctx context.Context, userID string) (transactionHash, iv string, err error) {
	cred, err := s.Store.Credentials().GetActiveCredentialByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", "", ErrAuthenticatorNotFound
		}
		return "", "", err
	}
	return cred.TransactionHash, cred.IV, nil
}
