package services

// In-memory repository fakes. They reproduce the store's concurrency
// contracts (single-winner consumption, unique pending key, unique
// (session, user) record) under a mutex so service tests can exercise
// races without a database.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/utils"
)

type memKeyRepo struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*models.DeviceKey
}

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{keys: make(map[uuid.UUID]*models.DeviceKey)}
}

func (r *memKeyRepo) Register(ctx context.Context, k *models.DeviceKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.keys {
		if existing.UserID == k.UserID && existing.DeviceID == k.DeviceID &&
			existing.State == models.KeyStatePending {
			return utils.ErrAlreadyPending
		}
	}
	now := time.Now().UTC()
	for _, existing := range r.keys {
		if existing.UserID == k.UserID && existing.DeviceID == k.DeviceID &&
			existing.State == models.KeyStateApproved {
			existing.State = models.KeyStateRevoked
			existing.DecidedAt = &now
		}
	}
	k.State = models.KeyStatePending
	cp := *k
	r.keys[k.ID] = &cp
	return nil
}

func (r *memKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DeviceKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

func (r *memKeyRepo) Decide(ctx context.Context, id, adminID uuid.UUID, approve bool) (*models.DeviceKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.State != models.KeyStatePending {
		return nil, utils.ErrNotPending
	}
	if approve {
		k.State = models.KeyStateApproved
	} else {
		k.State = models.KeyStateRevoked
	}
	now := time.Now().UTC()
	k.DecidedAt = &now
	k.DecidedBy = &adminID
	cp := *k
	return &cp, nil
}

func (r *memKeyRepo) Revoke(ctx context.Context, id, adminID uuid.UUID) (*models.DeviceKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.State != models.KeyStateApproved {
		return nil, utils.ErrNotApproved
	}
	k.State = models.KeyStateRevoked
	now := time.Now().UTC()
	k.DecidedAt = &now
	k.DecidedBy = &adminID
	cp := *k
	return &cp, nil
}

func (r *memKeyRepo) StatusFor(ctx context.Context, userID uuid.UUID, deviceID string) (models.KeyState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []*models.DeviceKey
	for _, k := range r.keys {
		if k.UserID == userID && k.DeviceID == deviceID {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return models.KeyStateNone, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].RegisteredAt.After(matches[j].RegisteredAt)
	})
	return matches[0].State, nil
}

func (r *memKeyRepo) GetApproved(ctx context.Context, userID uuid.UUID, deviceID string) (*models.DeviceKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.UserID == userID && k.DeviceID == deviceID && k.State == models.KeyStateApproved {
			cp := *k
			return &cp, nil
		}
	}
	return nil, nil
}

type memChallengeRepo struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*models.Challenge
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{challenges: make(map[uuid.UUID]*models.Challenge)}
}

func (r *memChallengeRepo) Create(ctx context.Context, c *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *memChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memChallengeRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consumeLocked(id), nil
}

func (r *memChallengeRepo) consumeLocked(id uuid.UUID) bool {
	c, ok := r.challenges[id]
	if !ok || !c.Usable(time.Now().UTC()) {
		return false
	}
	now := time.Now().UTC()
	c.ConsumedAt = &now
	return true
}

func (r *memChallengeRepo) ExpireUnconsumedForPair(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, c := range r.challenges {
		if c.UserID == userID && c.DeviceID == deviceID && c.ConsumedAt == nil && c.ExpiresAt.After(now) {
			c.ExpiresAt = now
			n++
		}
	}
	return n, nil
}

func (r *memChallengeRepo) DeleteDead(ctx context.Context, retention time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-retention)
	var n int64
	for id, c := range r.challenges {
		dead := (c.ConsumedAt != nil && c.ConsumedAt.Before(cutoff)) ||
			(c.ConsumedAt == nil && c.ExpiresAt.Before(cutoff))
		if dead {
			delete(r.challenges, id)
			n++
		}
	}
	return n, nil
}

type memAttendanceRepo struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]*models.AttendanceSession
	records    map[uuid.UUID]*models.AttendanceRecord
	challenges *memChallengeRepo
}

func newMemAttendanceRepo(challenges *memChallengeRepo) *memAttendanceRepo {
	return &memAttendanceRepo{
		sessions:   make(map[uuid.UUID]*models.AttendanceSession),
		records:    make(map[uuid.UUID]*models.AttendanceRecord),
		challenges: challenges,
	}
}

func (r *memAttendanceRepo) CreateSession(ctx context.Context, s *models.AttendanceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memAttendanceRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memAttendanceRepo) CloseSession(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, utils.ErrSessionNotFound
	}
	s.Status = models.SessionStatusClosed
	cp := *s
	return &cp, nil
}

func (r *memAttendanceRepo) ListSessionsByCourse(ctx context.Context, courseID string) ([]*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AttendanceSession
	for _, s := range r.sessions {
		if s.CourseID == courseID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenAt.Before(out[j].OpenAt) })
	return out, nil
}

func (r *memAttendanceRepo) MarkAtomic(ctx context.Context, rec *models.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.SessionID == rec.SessionID && existing.UserID == rec.UserID {
			return utils.ErrDuplicateAttendance
		}
		if existing.ChallengeID == rec.ChallengeID {
			return utils.ErrChallengeAlreadyUsed
		}
	}

	r.challenges.mu.Lock()
	consumed := r.challenges.consumeLocked(rec.ChallengeID)
	var alreadyUsed bool
	if !consumed {
		if c, ok := r.challenges.challenges[rec.ChallengeID]; ok && c.ConsumedAt != nil {
			alreadyUsed = true
		}
	}
	r.challenges.mu.Unlock()

	if !consumed {
		if alreadyUsed {
			return utils.ErrChallengeAlreadyUsed
		}
		return utils.ErrChallengeExpired
	}

	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *memAttendanceRepo) ListRecordsBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AttendanceRecord
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VerifiedAt.Before(out[j].VerifiedAt) })
	return out, nil
}

func (r *memAttendanceRepo) GetRecordForUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.SessionID == sessionID && rec.UserID == userID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}
