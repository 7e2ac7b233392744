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

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// FindOrCreate resolves an identity-provider subject to a local user,
// creating one on first login.
func (s *UserService) FindOrCreate(ctx context.Context, provider, providerUserID, username string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByProvider(ctx, provider, providerUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to look up user", slog.Any("error", err))
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user = domain.User{
		ID:             idx.New().String(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		Username:       username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// First-login race: two callbacks for the same subject. The unique
		// index makes one insert lose; fall back to the winner's row.
		if existing, lookupErr := s.Store.Users().GetUserByProvider(ctx, provider, providerUserID); lookupErr == nil {
			return existing, nil
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("provider", provider),
	)
	return user, nil
}
