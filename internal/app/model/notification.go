package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeRegistrationSubmitted   NotificationType = "registration_submitted"
	NotificationTypeRegistrationResubmitted NotificationType = "registration_resubmitted"
	NotificationTypeRegistrationApproved    NotificationType = "registration_approved"
	NotificationTypeRegistrationRejected    NotificationType = "registration_rejected"
	NotificationTypeInfoRequested           NotificationType = "registration_info_requested"
	NotificationTypeInfoDeadlineOverdue     NotificationType = "registration_info_overdue"
	NotificationTypeDocumentExpiring        NotificationType = "document_expiring"
	NotificationTypeCeilingUpdated          NotificationType = "price_ceiling_updated"
)

// Notification is an in-app message shown to a user. Delivery is best-effort:
// a failed insert never rolls back the transition that produced it.
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Type    NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`
	Title   string           `gorm:"type:text;not null" json:"title"`
	Content string           `gorm:"type:text;not null" json:"content"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`

	RelatedRegistrationID *uint `gorm:"index" json:"related_registration_id,omitempty"`
	RelatedDocumentID     *uint `gorm:"index" json:"related_document_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
