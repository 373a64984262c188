package repository

import (
	"errors"
	"time"

	"github.com/trade-importer/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound = errors.New("import session not found")
	// ErrActiveSessionExists means the user already has a non-terminal,
	// non-stale import session
	ErrActiveSessionExists = errors.New("active import session exists")
)

// SessionRepository handles import session data access
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// importGuardLockClass namespaces the per-user advisory lock so it cannot
// collide with other advisory lock users on the same database.
const importGuardLockClass = 4201

// activeSessionScope selects the user's non-terminal sessions that still
// count as live. A non-terminal session older than the cutoff is treated as
// abandoned and does not block.
func activeSessionScope(tx *gorm.DB, userID uint, cutoff time.Time) *gorm.DB {
	return tx.Model(&models.ImportSession{}).
		Where("user_id = ? AND status IN ? AND started_at > ?",
			userID,
			[]models.SessionStatus{models.SessionPending, models.SessionProcessing},
			cutoff)
}

// CreateIfIdle inserts the session only if the user has no active one.
// Row locks cannot serialize this check: when the user has no active session
// there is no row to lock, so two concurrent transactions would both count
// zero and both insert. A per-user advisory lock, held until commit,
// serializes check-and-insert across connections and service instances.
func (r *SessionRepository) CreateIfIdle(session *models.ImportSession, staleWindow time.Duration) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)",
			importGuardLockClass, int32(session.UserID)).Error
		if err != nil {
			return err
		}

		var active int64
		if err := activeSessionScope(tx, session.UserID, time.Now().Add(-staleWindow)).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveSessionExists
		}
		return tx.Create(session).Error
	})
}

// GetByReferenceAndUserID retrieves a session by its public reference,
// scoped to its owner
func (r *SessionRepository) GetByReferenceAndUserID(reference string, userID uint) (*models.ImportSession, error) {
	var session models.ImportSession
	result := r.db.Where("reference = ? AND user_id = ?", reference, userID).First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, result.Error
	}
	return &session, nil
}

// GetByUserIDPaginated retrieves sessions for a user, newest first
func (r *SessionRepository) GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.ImportSession, int64, error) {
	var sessions []models.ImportSession
	var total int64

	if err := r.db.Model(&models.ImportSession{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&sessions)

	return sessions, total, result.Error
}

// ApplyProgress runs fn against a freshly locked copy of the session and
// saves the result, so concurrent batch-completion callbacks never lose
// updates. fn sees current counters and mutates them in place.
func (r *SessionRepository) ApplyProgress(id uint, fn func(*models.ImportSession)) (*models.ImportSession, error) {
	var updated *models.ImportSession
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var session models.ImportSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		fn(&session)
		if err := tx.Save(&session).Error; err != nil {
			return err
		}
		updated = &session
		return nil
	})
	return updated, err
}

// FindStale returns non-terminal sessions that started before the cutoff
func (r *SessionRepository) FindStale(cutoff time.Time) ([]models.ImportSession, error) {
	var sessions []models.ImportSession
	result := r.db.Where("status IN ? AND started_at < ?",
		[]models.SessionStatus{models.SessionPending, models.SessionProcessing}, cutoff).
		Find(&sessions)
	return sessions, result.Error
}
