package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleBuyer  UserRole = "buyer"  // default role for new accounts
	RoleSeller UserRole = "seller" // granted when a registration is approved
	RoleAdmin  UserRole = "admin"  // back-office reviewer
)

// Capability is a named action a principal may be allowed to perform.
// The workflow consults a CapabilityChecker instead of inspecting roles inline.
type Capability string

const (
	CapabilityApproveSellers  Capability = "sellers:approve"
	CapabilityVerifyDocuments Capability = "documents:verify"
	CapabilitySetCeilings     Capability = "ceilings:set"
)

// CapabilityChecker answers whether a role carries a capability
type CapabilityChecker interface {
	Has(role UserRole, capability Capability) bool
}

// RoleCapabilities is the default role-based capability table
type RoleCapabilities struct{}

func (RoleCapabilities) Has(role UserRole, capability Capability) bool {
	switch capability {
	case CapabilityApproveSellers, CapabilityVerifyDocuments, CapabilitySetCeilings:
		return role == RoleAdmin
	}
	return false
}

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	Role         UserRole       `gorm:"type:varchar(20);default:'buyer'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Registrations []SellerRegistration `gorm:"foreignKey:UserID" json:"registrations,omitempty"`
}

func (User) TableName() string {
	return "users"
}
