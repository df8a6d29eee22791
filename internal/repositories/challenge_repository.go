package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/campuskit/attendance-service/internal/models"
)

// challengeConsumeSQL is the single conditional update that makes
// consumption exactly-once: it only matches while consumed_at is NULL
// and the challenge is unexpired, so among any set of concurrent
// callers precisely one update hits a row. MarkAtomic reuses the same
// statement inside the mark transaction.
const challengeConsumeSQL = `
    UPDATE challenges
    SET consumed_at = NOW()
    WHERE id = $1 AND consumed_at IS NULL AND expires_at > NOW()
`

type ChallengeRepository interface {
	Create(ctx context.Context, c *models.Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	// Consume atomically sets consumed_at from NULL to now. Returns
	// true to exactly one caller per challenge; false means the
	// challenge was already consumed, expired, or never existed.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	// ExpireUnconsumedForPair force-expires every outstanding challenge
	// for a (user, device) pair. Used when the pair's key is revoked.
	ExpireUnconsumedForPair(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error)
	// DeleteDead removes consumed or expired challenges older than the
	// retention window and returns how many rows went away.
	DeleteDead(ctx context.Context, retention time.Duration) (int64, error)
}

type challengeRepo struct {
	db DB
}

func NewChallengeRepository(db DB) ChallengeRepository {
	return &challengeRepo{db: db}
}

func (r *challengeRepo) Create(ctx context.Context, c *models.Challenge) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO challenges (id, user_id, device_id, nonce, issued_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.ID, c.UserID, c.DeviceID, c.Nonce, c.IssuedAt, c.ExpiresAt)
	return err
}

func (r *challengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, user_id, device_id, nonce, issued_at, expires_at, consumed_at
        FROM challenges
        WHERE id = $1
    `, id)
	var c models.Challenge
	err := row.Scan(&c.ID, &c.UserID, &c.DeviceID, &c.Nonce, &c.IssuedAt, &c.ExpiresAt, &c.ConsumedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, challengeConsumeSQL, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *challengeRepo) ExpireUnconsumedForPair(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE challenges
        SET expires_at = NOW()
        WHERE user_id=$1 AND device_id=$2 AND consumed_at IS NULL AND expires_at > NOW()
    `, userID, deviceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *challengeRepo) DeleteDead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	tag, err := r.db.Exec(ctx, `
        DELETE FROM challenges
        WHERE (consumed_at IS NOT NULL AND consumed_at < $1)
           OR (consumed_at IS NULL AND expires_at < $1)
    `, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
