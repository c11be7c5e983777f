package repository

import (
	"github.com/opas/opas-backend/internal/app/model"
	"gorm.io/gorm"
)

// ApprovalHistoryRepository is insert-and-read only: history rows are the
// audit trail of record and are never updated or deleted.
type ApprovalHistoryRepository interface {
	Create(tx *gorm.DB, entry *model.ApprovalHistory) error
	FindByRegistrationID(registrationID uint) ([]model.ApprovalHistory, error)
	FindByUserID(userID uint) ([]model.ApprovalHistory, error)
	CountByRegistrationID(registrationID uint) (int64, error)
}

type approvalHistoryRepository struct {
	db *gorm.DB
}

func NewApprovalHistoryRepository(db *gorm.DB) ApprovalHistoryRepository {
	return &approvalHistoryRepository{db: db}
}

func (r *approvalHistoryRepository) Create(tx *gorm.DB, entry *model.ApprovalHistory) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(entry).Error
}

func (r *approvalHistoryRepository) FindByRegistrationID(registrationID uint) ([]model.ApprovalHistory, error) {
	var entries []model.ApprovalHistory
	err := r.db.
		Preload("Admin").
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *approvalHistoryRepository) FindByUserID(userID uint) ([]model.ApprovalHistory, error) {
	var entries []model.ApprovalHistory
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *approvalHistoryRepository) CountByRegistrationID(registrationID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ApprovalHistory{}).
		Where("registration_id = ?", registrationID).
		Count(&count).Error
	return count, err
}
