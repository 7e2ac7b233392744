package sqlite

import (
	"context"

	"github.com/pushprotocol/authd/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, provider, provider_user_id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Provider, u.ProviderUserID, u.Username, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, provider, provider_user_id, username, created_at, updated_at
		FROM users
		WHERE id = ?`,
		id,
	)

	var u domain.User
	err := row.Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.Username, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByProvider(ctx context.Context, provider, providerUserID string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, provider, provider_user_id, username, created_at, updated_at
		FROM users
		WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID,
	)

	var u domain.User
	err := row.Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.Username, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}
