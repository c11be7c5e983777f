package repository

import (
	"github.com/opas/opas-backend/internal/app/model"
	"gorm.io/gorm"
)

type ProductFilter struct {
	Category string
	SellerID *uint
	Search   string
	Page     int
	PageSize int
}

type ProductListResult struct {
	Products   []model.Product `json:"products"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindByID(id uint) (*model.Product, error)
	FindAll(filter ProductFilter) (*ProductListResult, error)
	Update(product *model.Product) error
	Delete(id uint) error

	FindCeilingByCategory(category string) (*model.PriceCeiling, error)
	ListCeilings() ([]model.PriceCeiling, error)
	UpsertCeiling(ceiling *model.PriceCeiling) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Seller").First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindAll(filter ProductFilter) (*ProductListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := r.db.Model(&model.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []model.Product
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	return &ProductListResult{
		Products:   products,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *productRepository) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepository) Delete(id uint) error {
	return r.db.Delete(&model.Product{}, id).Error
}

func (r *productRepository) FindCeilingByCategory(category string) (*model.PriceCeiling, error) {
	var ceiling model.PriceCeiling
	if err := r.db.Where("category = ?", category).First(&ceiling).Error; err != nil {
		return nil, err
	}
	return &ceiling, nil
}

func (r *productRepository) ListCeilings() ([]model.PriceCeiling, error) {
	var ceilings []model.PriceCeiling
	err := r.db.Order("category ASC").Find(&ceilings).Error
	return ceilings, err
}

func (r *productRepository) UpsertCeiling(ceiling *model.PriceCeiling) error {
	var existing model.PriceCeiling
	err := r.db.Where("category = ?", ceiling.Category).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(ceiling).Error
	}
	if err != nil {
		return err
	}

	existing.MaxPrice = ceiling.MaxPrice
	existing.SetByID = ceiling.SetByID
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*ceiling = existing
	return nil
}
