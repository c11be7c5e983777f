package model

import (
	"time"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApprovalHistory is the append-only audit trail of terminal admin decisions.
// Exactly one entry is written per approve/reject; entries are never updated
// or deleted. Info requests are not decisions and leave no entry here.
type ApprovalHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID         uint                `gorm:"not null;index" json:"user_id"` // the applying buyer
	RegistrationID uint                `gorm:"not null;index" json:"registration_id"`
	Registration   *SellerRegistration `gorm:"foreignKey:RegistrationID" json:"-"`

	AdminID uint  `gorm:"not null" json:"admin_id"`
	Admin   *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`

	Decision       Decision  `gorm:"type:varchar(20);not null" json:"decision"`
	DecisionReason string    `gorm:"type:text" json:"decision_reason,omitempty"`
	AdminNotes     string    `gorm:"type:text" json:"admin_notes,omitempty"`
	EffectiveFrom  time.Time `gorm:"not null" json:"effective_from"`
}

func (ApprovalHistory) TableName() string {
	return "approval_histories"
}
