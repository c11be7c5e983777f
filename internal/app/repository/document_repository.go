package repository

import (
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(tx *gorm.DB, doc *model.RegistrationDocument) error
	FindByID(id uint) (*model.RegistrationDocument, error)
	FindByRegistrationID(registrationID uint, includeSuperseded bool) ([]model.RegistrationDocument, error)
	// MarkSuperseded flags the current documents of the given types so a
	// resubmission can attach replacements without deleting anything.
	MarkSuperseded(tx *gorm.DB, registrationID uint, types []model.DocumentType) error
	// Review applies a verify/reject decision; the write is conditional on the
	// document still being pending so a document is reviewed at most once.
	Review(id uint, status model.DocumentStatus, adminID uint, notes string) (bool, error)
	FindExpiringBefore(cutoff time.Time) ([]model.RegistrationDocument, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(tx *gorm.DB, doc *model.RegistrationDocument) error {
	if tx == nil {
		tx = r.db
	}
	if err := tx.Create(doc).Error; err != nil {
		logger.Error("Failed to create registration document", err, map[string]interface{}{
			"registration_id": doc.RegistrationID,
			"document_type":   doc.Type,
		})
		return err
	}
	return nil
}

func (r *documentRepository) FindByID(id uint) (*model.RegistrationDocument, error) {
	var doc model.RegistrationDocument
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByRegistrationID(registrationID uint, includeSuperseded bool) ([]model.RegistrationDocument, error) {
	var docs []model.RegistrationDocument
	query := r.db.Where("registration_id = ?", registrationID)
	if !includeSuperseded {
		query = query.Where("superseded = ?", false)
	}
	err := query.Order("uploaded_at ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) MarkSuperseded(tx *gorm.DB, registrationID uint, types []model.DocumentType) error {
	if tx == nil {
		tx = r.db
	}
	if len(types) == 0 {
		return nil
	}
	return tx.Model(&model.RegistrationDocument{}).
		Where("registration_id = ? AND document_type IN ? AND superseded = ?", registrationID, types, false).
		Update("superseded", true).Error
}

func (r *documentRepository) Review(id uint, status model.DocumentStatus, adminID uint, notes string) (bool, error) {
	now := time.Now()
	result := r.db.Model(&model.RegistrationDocument{}).
		Where("id = ? AND status = ?", id, model.DocumentStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"verified_by": adminID,
			"notes":       notes,
			"verified_at": now,
		})
	if result.Error != nil {
		logger.Error("Failed to review document", result.Error, map[string]interface{}{
			"document_id": id,
			"status":      status,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *documentRepository) FindExpiringBefore(cutoff time.Time) ([]model.RegistrationDocument, error) {
	var docs []model.RegistrationDocument
	err := r.db.
		Where("expires_at IS NOT NULL AND expires_at < ? AND superseded = ?", cutoff, false).
		Find(&docs).Error
	return docs, err
}
