package model

import (
	"time"

	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentTypeTaxID          DocumentType = "tax_id"
	DocumentTypeBusinessPermit DocumentType = "business_permit"
	DocumentTypeIDProof        DocumentType = "id_proof"
)

// ValidDocumentType reports whether t is one of the accepted document types
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeTaxID, DocumentTypeBusinessPermit, DocumentTypeIDProof:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusVerified DocumentStatus = "verified"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// RegistrationDocument is one uploaded identity/business document attached to a
// registration. Documents are never deleted; a resubmission marks the replaced
// ones superseded and inserts new records.
type RegistrationDocument struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RegistrationID uint                `gorm:"not null;index" json:"registration_id"`
	Registration   *SellerRegistration `gorm:"foreignKey:RegistrationID" json:"-"`

	Type    DocumentType   `gorm:"column:document_type;type:varchar(30);not null" json:"document_type"`
	FileURL string         `gorm:"type:text;not null" json:"file_url"`
	Status  DocumentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Review stamp; VerifiedAt is set exactly when status leaves pending
	VerifiedBy *uint      `json:"verified_by,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	UploadedAt time.Time  `gorm:"not null" json:"uploaded_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	Superseded bool `gorm:"default:false;index" json:"superseded"`
}

func (RegistrationDocument) TableName() string {
	return "registration_documents"
}
