package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/conversahq/conversa_api/model"
)

// ProfileRepository handles the application-level user profile rows.
type ProfileRepository struct {
	BaseRepository
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *ProfileRepository) GetProfile(userID string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := r.db.Where("id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreateProfile lazily creates the profile row on the first validated
// session that finds it missing. The existence check and the insert are not
// atomic: two concurrent validations of a brand-new user can both pass the
// check, and the loser hits the primary-key constraint. That loser re-reads
// the row the winner wrote, so both callers converge on one row.
func (r *ProfileRepository) GetOrCreateProfile(userID, email, fullName string) (*model.UserProfile, error) {
	profile, err := r.GetProfile(userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = &model.UserProfile{
		ID:       userID,
		Email:    email,
		FullName: fullName,
	}

	if err := r.db.Create(profile).Error; err != nil {
		if isDuplicateKey(err) {
			return r.GetProfile(userID)
		}
		return nil, err
	}

	return profile, nil
}

func (r *ProfileRepository) UpdateProfile(profile *model.UserProfile) error {
	return r.db.Save(profile).Error
}

func (r *ProfileRepository) SetAvatarURL(userID, avatarURL string) error {
	return r.db.Model(&model.UserProfile{}).
		Where("id = ?", userID).
		Update("avatar_url", avatarURL).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
