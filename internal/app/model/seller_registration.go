package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	RegistrationStatusPending         RegistrationStatus = "pending"
	RegistrationStatusApproved        RegistrationStatus = "approved"
	RegistrationStatusRejected        RegistrationStatus = "rejected"
	RegistrationStatusRequestMoreInfo RegistrationStatus = "request_more_info"
)

// Terminal reports whether no further transitions are expected on this record.
// A rejected buyer may still apply again, but that creates a new record.
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationStatusApproved || s == RegistrationStatusRejected
}

// SellerRegistration is a buyer's application to become a marketplace seller.
// A user has at most one non-terminal registration at a time; records are never
// physically deleted; rejected ones are superseded by a fresh submission.
type SellerRegistration struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Farm profile
	FarmName      string         `gorm:"type:varchar(200);not null" json:"farm_name"`
	FarmLocation  string         `gorm:"type:varchar(200)" json:"farm_location"`
	FarmSize      float64        `json:"farm_size"` // hectares
	ProductsGrown pq.StringArray `gorm:"type:text[]" json:"products_grown"`

	// Storefront the buyer intends to open once approved
	StoreName        string `gorm:"type:varchar(200);not null" json:"store_name"`
	StoreDescription string `gorm:"type:text" json:"store_description"`

	Status RegistrationStatus `gorm:"type:varchar(30);default:'pending';index" json:"status"`

	// SubmittedAt is set once and survives resubmission (SLA tracking runs
	// from the first submission).
	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`

	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Latest info request, when status is request_more_info
	InfoRequestMessage string     `gorm:"type:text" json:"info_request_message,omitempty"`
	InfoDeadlineAt     *time.Time `json:"info_deadline_at,omitempty"`

	Documents []RegistrationDocument `gorm:"foreignKey:RegistrationID" json:"documents,omitempty"`
	History   []ApprovalHistory      `gorm:"foreignKey:RegistrationID" json:"history,omitempty"`
}

func (SellerRegistration) TableName() string {
	return "seller_registrations"
}
