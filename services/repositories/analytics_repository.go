package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conversahq/conversa_api/model"
)

// AnalyticsRepository handles the append-only log tables. There is no read
// path in the API; counts exist for tests and ad-hoc inspection.
type AnalyticsRepository struct {
	BaseRepository
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *AnalyticsRepository) CreateSubmission(submission *model.ContactSubmission) (*model.ContactSubmission, error) {
	if submission.ID == "" {
		id, _ := uuid.NewV7()
		submission.ID = id.String()
	}
	if err := r.db.Create(submission).Error; err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *AnalyticsRepository) CreateChatRecord(record *model.ChatAnalyticsRecord) error {
	if record.ID == "" {
		id, _ := uuid.NewV7()
		record.ID = id.String()
	}
	return r.db.Create(record).Error
}

func (r *AnalyticsRepository) CountSubmissions() (int64, error) {
	var count int64
	err := r.db.Model(&model.ContactSubmission{}).Count(&count).Error
	return count, err
}

func (r *AnalyticsRepository) CountChatRecords() (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatAnalyticsRecord{}).Count(&count).Error
	return count, err
}
