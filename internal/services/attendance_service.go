package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/realtime"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

// AttendanceService owns sessions and records, and orchestrates the
// marking pipeline: verify → consume → record, with consume and record
// inside a single store transaction.
type AttendanceService interface {
	OpenSession(ctx context.Context, professorID uuid.UUID, courseID string, openAt, closeAt time.Time) (*models.AttendanceSession, error)
	// CloseSession is idempotent; closing a closed session is success.
	CloseSession(ctx context.Context, sessionID uuid.UUID) (*models.AttendanceSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.AttendanceSession, error)
	ListSessionsByCourse(ctx context.Context, courseID string) ([]*models.AttendanceSession, error)

	// Mark accepts a signed challenge and produces the attendance
	// record, or exactly one of the taxonomy errors. A user marks a
	// session at most once; a challenge produces at most one record.
	Mark(ctx context.Context, sessionID, userID uuid.UUID, deviceID string, challengeID uuid.UUID, signature []byte) (*models.AttendanceRecord, error)

	ListRecords(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error)
	GetRecordForUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.AttendanceRecord, error)
}

type attendanceService struct {
	repo     repositories.AttendanceRepository
	verifier SignatureVerifier
	notifier realtime.Notifier
}

func NewAttendanceService(
	repo repositories.AttendanceRepository,
	verifier SignatureVerifier,
	notifier realtime.Notifier,
) AttendanceService {
	return &attendanceService{repo: repo, verifier: verifier, notifier: notifier}
}

func (s *attendanceService) OpenSession(ctx context.Context, professorID uuid.UUID, courseID string, openAt, closeAt time.Time) (*models.AttendanceSession, error) {
	sess := &models.AttendanceSession{
		ID:          uuid.New(),
		ProfessorID: professorID,
		CourseID:    courseID,
		OpenAt:      openAt.UTC(),
		CloseAt:     closeAt.UTC(),
		Status:      models.SessionStatusOpen,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	utils.Logger.Infof("session %s opened for course %s (%s – %s)", sess.ID, courseID, sess.OpenAt, sess.CloseAt)

	s.notifier.Publish(ctx, realtime.Event{
		Topic:    realtime.TopicSessionOpened,
		EntityID: sess.ID.String(),
		State:    string(sess.Status),
		At:       sess.OpenAt,
	})
	return sess, nil
}

func (s *attendanceService) CloseSession(ctx context.Context, sessionID uuid.UUID) (*models.AttendanceSession, error) {
	sess, err := s.repo.CloseSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	utils.Logger.Infof("session %s closed", sess.ID)

	s.notifier.Publish(ctx, realtime.Event{
		Topic:    realtime.TopicSessionClosed,
		EntityID: sess.ID.String(),
		State:    string(sess.Status),
		At:       time.Now().UTC(),
	})
	return sess, nil
}

func (s *attendanceService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.AttendanceSession, error) {
	return s.repo.GetSession(ctx, sessionID)
}

func (s *attendanceService) ListSessionsByCourse(ctx context.Context, courseID string) ([]*models.AttendanceSession, error) {
	return s.repo.ListSessionsByCourse(ctx, courseID)
}

func (s *attendanceService) Mark(ctx context.Context, sessionID, userID uuid.UUID, deviceID string, challengeID uuid.UUID, signature []byte) (*models.AttendanceRecord, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, utils.ErrSessionNotFound
	}
	now := time.Now().UTC()
	if !sess.AcceptsMarking(now) {
		return nil, utils.ErrSessionClosed
	}

	verified, err := s.verifier.Verify(ctx, challengeID, signature)
	if err != nil {
		return nil, err
	}
	// The challenge binds the caller: a signature for someone else's
	// challenge is useless here.
	if verified.Challenge.UserID != userID || verified.Challenge.DeviceID != deviceID {
		return nil, utils.ErrSignatureInvalid
	}

	rec := &models.AttendanceRecord{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserID:      userID,
		DeviceID:    deviceID,
		ChallengeID: challengeID,
		VerifiedAt:  now,
	}
	if err := s.repo.MarkAtomic(ctx, rec); err != nil {
		return nil, err
	}
	utils.Logger.Infof("attendance recorded: session=%s user=%s challenge=%s", sessionID, userID, challengeID)

	s.notifier.Publish(ctx, realtime.Event{
		Topic:    realtime.TopicAttendanceMarked,
		EntityID: rec.ID.String(),
		UserID:   userID.String(),
		DeviceID: deviceID,
		At:       rec.VerifiedAt,
	})
	return rec, nil
}

func (s *attendanceService) ListRecords(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	return s.repo.ListRecordsBySession(ctx, sessionID)
}

func (s *attendanceService) GetRecordForUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	return s.repo.GetRecordForUser(ctx, sessionID, userID)
}
