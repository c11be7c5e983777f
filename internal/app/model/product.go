package model

import (
	"time"

	"gorm.io/gorm"
)

// Product is a listing by an approved seller. Listing prices are capped by the
// admin-set ceiling for the product's category.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SellerID uint  `gorm:"not null;index" json:"seller_id"`
	Seller   *User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`

	Name        string  `gorm:"type:varchar(200);not null" json:"name"`
	Category    string  `gorm:"type:varchar(50);not null;index" json:"category"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null" json:"price"` // per unit
	Unit        string  `gorm:"type:varchar(20);default:'kg'" json:"unit"`
	Stock       int     `gorm:"default:0" json:"stock"`
}

func (Product) TableName() string {
	return "products"
}

// PriceCeiling is the admin-set maximum listing price per category
type PriceCeiling struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category string  `gorm:"type:varchar(50);uniqueIndex;not null" json:"category"`
	MaxPrice float64 `gorm:"not null" json:"max_price"`
	SetByID  uint    `gorm:"not null" json:"set_by_id"`
}

func (PriceCeiling) TableName() string {
	return "price_ceilings"
}
