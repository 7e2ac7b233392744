package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/store"
)

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenges (id, user_id, value, type, active, used, verification_success, rp_id, origin, detail, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.Value,
		string(c.Type),
		c.Active,
		c.Used,
		mapBoolPtrNull(c.VerificationSuccess),
		c.RPID,
		c.Origin,
		mapStringNull(c.Detail),
		c.CreatedAt,
		c.ExpiresAt,
	)
	return err
}

func (r *challengesRepo) SupersedeActiveChallenges(ctx context.Context, userID string) (int64, error) {
	// Superseded challenges are retired without an outcome; their
	// verification_success stays NULL forever.
	res, err := r.db.ExecContext(ctx, `
		UPDATE challenges
		SET active = 0, used = 1, detail = 'superseded'
		WHERE user_id = ? AND active = 1 AND used = 0`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *challengesRepo) ListActiveChallenges(
	ctx context.Context,
	userID string,
	typ domain.ChallengeType,
	now time.Time,
) ([]domain.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, value, type, active, used, verification_success, rp_id, origin, detail, created_at, expires_at
		FROM challenges
		WHERE user_id = ? AND type = ? AND active = 1 AND used = 0 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, string(typ), now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *challengesRepo) CloseChallenge(ctx context.Context, id string, success bool, detail string) error {
	// Conditional on used so a close can never reopen or rewrite an outcome.
	res, err := r.db.ExecContext(ctx, `
		UPDATE challenges
		SET active = 0, used = 1, verification_success = ?, detail = ?
		WHERE id = ? AND used = 0`,
		success, mapStringNull(detail), id,
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

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`, now)
	return err
}

func scanChallenge(rows *sql.Rows) (domain.Challenge, error) {
	var (
		c       domain.Challenge
		typ     string
		success sql.NullBool
		detail  sql.NullString
	)
	err := rows.Scan(
		&c.ID, &c.UserID, &c.Value, &typ,
		&c.Active, &c.Used, &success,
		&c.RPID, &c.Origin, &detail,
		&c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return domain.Challenge{}, err
	}

	c.Type = domain.ChallengeType(typ)
	c.VerificationSuccess = mapNullBoolPtr(success)
	c.Detail = mapNullString(detail)
	return c, nil
}

func mapBoolPtrNull(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{Valid: false}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
