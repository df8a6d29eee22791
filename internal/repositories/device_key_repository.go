package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/utils"
)

// Partial unique index violated when a second pending key is inserted
// for the same (user, device) pair. See migrations/0001.
const pendingKeyConstraint = "device_keys_one_pending_per_device"

type DeviceKeyRepository interface {
	// Register revokes any approved key for the pair and inserts the new
	// pending key, in one transaction. Returns utils.ErrAlreadyPending
	// when an unresolved pending key exists for the pair.
	Register(ctx context.Context, k *models.DeviceKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DeviceKey, error)
	// Decide moves a pending key to approved or revoked with a single
	// conditional update. Returns utils.ErrNotPending when the key is
	// missing or no longer pending.
	Decide(ctx context.Context, id, adminID uuid.UUID, approve bool) (*models.DeviceKey, error)
	// Revoke moves an approved key to revoked with a single conditional
	// update. Returns utils.ErrNotApproved when the key is missing or
	// not approved.
	Revoke(ctx context.Context, id, adminID uuid.UUID) (*models.DeviceKey, error)
	// StatusFor returns the state of the most recent key for the pair,
	// or KeyStateNone when the pair has never registered.
	StatusFor(ctx context.Context, userID uuid.UUID, deviceID string) (models.KeyState, error)
	// GetApproved returns the approved key for the pair, or nil.
	GetApproved(ctx context.Context, userID uuid.UUID, deviceID string) (*models.DeviceKey, error)
}

type deviceKeyRepo struct {
	db DB
}

func NewDeviceKeyRepository(db DB) DeviceKeyRepository {
	return &deviceKeyRepo{db: db}
}

func baseSelectDeviceKey() string {
	return `
        SELECT id, user_id, device_id, public_key_pem, state,
               registered_at, decided_at, decided_by
        FROM device_keys`
}

func scanDeviceKey(row pgx.Row) (*models.DeviceKey, error) {
	var k models.DeviceKey
	err := row.Scan(
		&k.ID, &k.UserID, &k.DeviceID, &k.PublicKeyPEM, &k.State,
		&k.RegisteredAt, &k.DecidedAt, &k.DecidedBy,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *deviceKeyRepo) Register(ctx context.Context, k *models.DeviceKey) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	// Key rotation: a still-approved key for the pair becomes terminal
	// revoked before the replacement is created.
	_, err = tx.Exec(ctx, `
        UPDATE device_keys
        SET state='revoked', decided_at=NOW()
        WHERE user_id=$1 AND device_id=$2 AND state='approved'
    `, k.UserID, k.DeviceID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO device_keys (
            id, user_id, device_id, public_key_pem, state, registered_at
        ) VALUES ($1, $2, $3, $4, 'pending', $5)
    `, k.ID, k.UserID, k.DeviceID, k.PublicKeyPEM, k.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == pendingKeyConstraint {
			err = utils.ErrAlreadyPending
		}
		return err
	}
	k.State = models.KeyStatePending
	return nil
}

func (r *deviceKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DeviceKey, error) {
	row := r.db.QueryRow(ctx, baseSelectDeviceKey()+" WHERE id=$1", id)
	return scanDeviceKey(row)
}

func (r *deviceKeyRepo) Decide(ctx context.Context, id, adminID uuid.UUID, approve bool) (*models.DeviceKey, error) {
	newState := models.KeyStateRevoked
	if approve {
		newState = models.KeyStateApproved
	}
	// Conditional on the current state so two racing decisions cannot
	// both land; the loser sees zero rows.
	row := r.db.QueryRow(ctx, `
        UPDATE device_keys
        SET state=$2, decided_at=NOW(), decided_by=$3
        WHERE id=$1 AND state='pending'
        RETURNING id, user_id, device_id, public_key_pem, state,
                  registered_at, decided_at, decided_by
    `, id, newState, adminID)
	k, err := scanDeviceKey(row)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, utils.ErrNotPending
	}
	return k, nil
}

func (r *deviceKeyRepo) Revoke(ctx context.Context, id, adminID uuid.UUID) (*models.DeviceKey, error) {
	row := r.db.QueryRow(ctx, `
        UPDATE device_keys
        SET state='revoked', decided_at=NOW(), decided_by=$2
        WHERE id=$1 AND state='approved'
        RETURNING id, user_id, device_id, public_key_pem, state,
                  registered_at, decided_at, decided_by
    `, id, adminID)
	k, err := scanDeviceKey(row)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, utils.ErrNotApproved
	}
	return k, nil
}

func (r *deviceKeyRepo) StatusFor(ctx context.Context, userID uuid.UUID, deviceID string) (models.KeyState, error) {
	row := r.db.QueryRow(ctx, `
        SELECT state FROM device_keys
        WHERE user_id=$1 AND device_id=$2
        ORDER BY registered_at DESC
        LIMIT 1
    `, userID, deviceID)
	var state models.KeyState
	err := row.Scan(&state)
	if err == pgx.ErrNoRows {
		return models.KeyStateNone, nil
	}
	if err != nil {
		return models.KeyStateNone, err
	}
	return state, nil
}

func (r *deviceKeyRepo) GetApproved(ctx context.Context, userID uuid.UUID, deviceID string) (*models.DeviceKey, error) {
	row := r.db.QueryRow(ctx,
		baseSelectDeviceKey()+" WHERE user_id=$1 AND device_id=$2 AND state='approved'",
		userID, deviceID)
	return scanDeviceKey(row)
}
