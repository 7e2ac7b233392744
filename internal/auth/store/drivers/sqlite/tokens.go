package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.BridgingToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bridging_tokens (id, status, payload, redirect_uri, used, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		string(t.Status),
		mapStringNull(t.Payload),
		mapStringNull(t.RedirectURI),
		t.Used,
		t.CreatedAt,
		t.ExpiresAt,
	)
	return err
}

func (r *tokensRepo) GetToken(ctx context.Context, id string) (domain.BridgingToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, payload, redirect_uri, used, created_at, expires_at
		FROM bridging_tokens
		WHERE id = ?`,
		id,
	)

	var (
		t                    domain.BridgingToken
		status               string
		payload, redirectURI sql.NullString
	)
	err := row.Scan(&t.ID, &status, &payload, &redirectURI, &t.Used, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return domain.BridgingToken{}, mapNotFound(err)
	}

	t.Status = domain.TokenStatus(status)
	t.Payload = mapNullString(payload)
	t.RedirectURI = mapNullString(redirectURI)
	return t, nil
}

func (r *tokensRepo) ActivateToken(ctx context.Context, id string, payload string) error {
	// Conditional on status so a second activation can never overwrite the
	// payload. Zero rows means the token is missing or already active.
	res, err := r.db.ExecContext(ctx, `
		UPDATE bridging_tokens
		SET status = 'active', payload = ?
		WHERE id = ? AND status = 'pending'`,
		payload, id,
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

func (r *tokensRepo) ConsumeToken(ctx context.Context, id string, now time.Time) (string, error) {
	// Flip used first, then read. The conditional update is the whole
	// exactly-once story: under concurrent redemption only one caller's
	// UPDATE matches, every other sees zero rows.
	res, err := r.db.ExecContext(ctx, `
		UPDATE bridging_tokens
		SET used = 1
		WHERE id = ? AND status = 'active' AND used = 0 AND expires_at > ?`,
		id, now,
	)
	if err != nil {
		return "", err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", store.ErrNotFound
	}

	var payload sql.NullString
	err = r.db.QueryRowContext(ctx, `SELECT payload FROM bridging_tokens WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return "", mapNotFound(err)
	}
	return mapNullString(payload), nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bridging_tokens WHERE expires_at <= ?`, now)
	return err
}
