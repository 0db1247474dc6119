package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conversahq/conversa_api/model"
)

// SessionRepository handles user session and activity rows.
type SessionRepository struct {
	BaseRepository
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *SessionRepository) CreateSession(session *model.UserSession) (*model.UserSession, error) {
	if session.ID == "" {
		id, _ := uuid.NewV7()
		session.ID = id.String()
	}
	if err := r.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) GetActiveSessionByTokenHash(tokenHash string) (*model.UserSession, error) {
	var session model.UserSession
	err := r.db.Where("token_hash = ? AND is_active = ?", tokenHash, true).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) TouchSession(sessionID string) error {
	return r.db.Model(&model.UserSession{}).
		Where("id = ?", sessionID).
		Update("last_used", time.Now()).Error
}

func (r *SessionRepository) RevokeSession(sessionID string) error {
	return r.db.Model(&model.UserSession{}).
		Where("id = ?", sessionID).
		Update("is_active", false).Error
}

func (r *SessionRepository) RevokeSessionByTokenHash(tokenHash string) error {
	return r.db.Model(&model.UserSession{}).
		Where("token_hash = ?", tokenHash).
		Update("is_active", false).Error
}

func (r *SessionRepository) RevokeSessionsForUser(userID string) error {
	return r.db.Model(&model.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}

// DeleteExpiredSessions removes rows whose expiry passed more than the
// retention window ago. Called from the Postgres service cleanup ticker.
func (r *SessionRepository) DeleteExpiredSessions(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	return r.db.Where("expires_at < ?", cutoff).
		Delete(&model.UserSession{}).Error
}
