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

// Unique constraints on attendance_records; which one fired tells us
// whether the user or the challenge was the duplicate.
const (
	recordSessionUserConstraint = "attendance_records_session_user_key"
	recordChallengeConstraint   = "attendance_records_challenge_key"
)

type AttendanceRepository interface {
	CreateSession(ctx context.Context, s *models.AttendanceSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error)
	// CloseSession is idempotent: closing an already-closed session
	// succeeds and returns the session unchanged.
	CloseSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error)
	ListSessionsByCourse(ctx context.Context, courseID string) ([]*models.AttendanceSession, error)

	// MarkAtomic inserts the record and consumes its challenge in one
	// transaction, record first, consume last, so a failed transaction
	// never leaves a consumed challenge without a record. Returns
	// utils.ErrDuplicateAttendance when the (session, user) pair is
	// already recorded, utils.ErrChallengeAlreadyUsed when the
	// challenge lost the consumption race, utils.ErrChallengeExpired
	// when it ran out of time in between.
	MarkAtomic(ctx context.Context, rec *models.AttendanceRecord) error

	ListRecordsBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error)
	GetRecordForUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.AttendanceRecord, error)
}

type attendanceRepo struct {
	db DB
}

func NewAttendanceRepository(db DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func baseSelectSession() string {
	return `
        SELECT id, professor_id, course_id, open_at, close_at, status
        FROM attendance_sessions`
}

func scanSession(row pgx.Row) (*models.AttendanceSession, error) {
	var s models.AttendanceSession
	err := row.Scan(&s.ID, &s.ProfessorID, &s.CourseID, &s.OpenAt, &s.CloseAt, &s.Status)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *attendanceRepo) CreateSession(ctx context.Context, s *models.AttendanceSession) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO attendance_sessions (id, professor_id, course_id, open_at, close_at, status)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, s.ID, s.ProfessorID, s.CourseID, s.OpenAt, s.CloseAt, s.Status)
	return err
}

func (r *attendanceRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, baseSelectSession()+" WHERE id=$1", id)
	return scanSession(row)
}

func (r *attendanceRepo) CloseSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	// Unconditional set-to-closed keeps the operation idempotent; the
	// RETURNING row doubles as the existence check.
	row := r.db.QueryRow(ctx, `
        UPDATE attendance_sessions
        SET status='CLOSED'
        WHERE id=$1
        RETURNING id, professor_id, course_id, open_at, close_at, status
    `, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, utils.ErrSessionNotFound
	}
	return s, nil
}

func (r *attendanceRepo) ListSessionsByCourse(ctx context.Context, courseID string) ([]*models.AttendanceSession, error) {
	rows, err := r.db.Query(ctx, baseSelectSession()+" WHERE course_id=$1 ORDER BY open_at DESC", courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AttendanceSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *attendanceRepo) MarkAtomic(ctx context.Context, rec *models.AttendanceRecord) error {
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

	_, err = tx.Exec(ctx, `
        INSERT INTO attendance_records (id, session_id, user_id, device_id, challenge_id, verified_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, rec.ID, rec.SessionID, rec.UserID, rec.DeviceID, rec.ChallengeID, rec.VerifiedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case recordSessionUserConstraint:
				err = utils.ErrDuplicateAttendance
			case recordChallengeConstraint:
				err = utils.ErrChallengeAlreadyUsed
			}
		}
		return err
	}

	// Consumption is the last step: the record is staged above, so the
	// challenge can never end up consumed without its record.
	tag, execErr := tx.Exec(ctx, challengeConsumeSQL, rec.ChallengeID)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() != 1 {
		// Lost the race or expired mid-flight; distinguish for the caller.
		row := tx.QueryRow(ctx, `SELECT consumed_at IS NOT NULL FROM challenges WHERE id=$1`, rec.ChallengeID)
		var consumed bool
		if scanErr := row.Scan(&consumed); scanErr != nil && scanErr != pgx.ErrNoRows {
			err = scanErr
			return err
		}
		if consumed {
			err = utils.ErrChallengeAlreadyUsed
		} else {
			err = utils.ErrChallengeExpired
		}
		return err
	}
	return nil
}

func (r *attendanceRepo) ListRecordsBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, session_id, user_id, device_id, challenge_id, verified_at
        FROM attendance_records
        WHERE session_id=$1
        ORDER BY verified_at
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.DeviceID, &rec.ChallengeID, &rec.VerifiedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *attendanceRepo) GetRecordForUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, session_id, user_id, device_id, challenge_id, verified_at
        FROM attendance_records
        WHERE session_id=$1 AND user_id=$2
    `, sessionID, userID)
	var rec models.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.DeviceID, &rec.ChallengeID, &rec.VerifiedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
