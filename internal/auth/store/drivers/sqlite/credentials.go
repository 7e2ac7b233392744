package sqlite

import (
	"context"
	"database/sql"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, user_id, credential_id, public_key, counter, active, transaction_hash, iv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.CredentialID,
		c.PublicKey,
		c.Counter,
		c.Active,
		mapStringNull(c.TransactionHash),
		mapStringNull(c.IV),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *credentialsRepo) DeactivateUserCredentials(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credentials
		SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND active = 1`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *credentialsRepo) GetActiveCredential(ctx context.Context, userID, credentialID string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, credential_id, public_key, counter, active, transaction_hash, iv, created_at, updated_at
		FROM credentials
		WHERE user_id = ? AND credential_id = ? AND active = 1`,
		userID, credentialID,
	)
	return scanCredential(row)
}

func (r *credentialsRepo) GetActiveCredentialByUser(ctx context.Context, userID string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, credential_id, public_key, counter, active, transaction_hash, iv, created_at, updated_at
		FROM credentials
		WHERE user_id = ? AND active = 1
		ORDER BY created_at DESC
		LIMIT 1`,
		userID,
	)
	return scanCredential(row)
}

func (r *credentialsRepo) UpdateCredentialCounter(ctx context.Context, id string, counter uint32) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credentials
		SET counter = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		counter, id,
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *credentialsRepo) UpdateTransactionData(ctx context.Context, userID, transactionHash, iv string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credentials
		SET transaction_hash = ?, iv = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND active = 1`,
		mapStringNull(transactionHash), mapStringNull(iv), userID,
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanCredential(row *sql.Row) (domain.Credential, error) {
	var (
		c        domain.Credential
		hash, iv sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.CredentialID, &c.PublicKey,
		&c.Counter, &c.Active, &hash, &iv,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}

	c.TransactionHash = mapNullString(hash)
	c.IV = mapNullString(iv)
	return c, nil
}
