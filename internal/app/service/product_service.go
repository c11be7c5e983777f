package service

import (
	"errors"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrNotProductOwner    = errors.New("product belongs to another seller")
	ErrSellerRoleRequired = errors.New("only approved sellers may list products")
	ErrPriceAboveCeiling  = errors.New("price exceeds the ceiling for this category")
	ErrCeilingNotFound    = errors.New("no price ceiling exists for this category")
)

type ProductInput struct {
	Name        string
	Category    string
	Description string
	Price       float64
	Unit        string
	Stock       int
}

type ProductUpdateInput struct {
	Name        *string
	Description *string
	Price       *float64
	Unit        *string
	Stock       *int
}

type ProductService interface {
	Create(sellerID uint, input ProductInput) (*model.Product, error)
	Get(id uint) (*model.Product, error)
	List(filter repository.ProductFilter) (*repository.ProductListResult, error)
	Update(sellerID, productID uint, input ProductUpdateInput) (*model.Product, error)
	Delete(sellerID, productID uint) error

	SetCeiling(adminID uint, category string, maxPrice float64) (*model.PriceCeiling, error)
	ListCeilings() ([]model.PriceCeiling, error)
}

type productService struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	notifier    NotificationService
	authz       model.CapabilityChecker
}

func NewProductService(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	authz model.CapabilityChecker,
) ProductService {
	return &productService{
		productRepo: productRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		authz:       authz,
	}
}

func (s *productService) Create(sellerID uint, input ProductInput) (*model.Product, error) {
	seller, err := s.userRepo.FindByID(sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if seller.Role != model.RoleSeller && seller.Role != model.RoleAdmin {
		return nil, ErrSellerRoleRequired
	}

	if err := s.validateProductInput(input); err != nil {
		return nil, err
	}

	if err := s.checkCeiling(input.Category, input.Price); err != nil {
		return nil, err
	}

	product := &model.Product{
		SellerID:    sellerID,
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Unit:        input.Unit,
		Stock:       input.Stock,
	}
	if product.Unit == "" {
		product.Unit = "kg"
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"seller_id":  sellerID,
		"category":   product.Category,
	})

	return product, nil
}

func (s *productService) Get(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) List(filter repository.ProductFilter) (*repository.ProductListResult, error) {
	return s.productRepo.FindAll(filter)
}

func (s *productService) Update(sellerID, productID uint, input ProductUpdateInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, ErrNotProductOwner
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, &ValidationError{Fields: map[string]string{
				"price": "price must be positive",
			}}
		}
		if err := s.checkCeiling(product.Category, *input.Price); err != nil {
			return nil, err
		}
		product.Price = *input.Price
	}
	if input.Unit != nil {
		product.Unit = *input.Unit
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(sellerID, productID uint) error {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if product.SellerID != sellerID {
		return ErrNotProductOwner
	}
	return s.productRepo.Delete(productID)
}

func (s *productService) SetCeiling(adminID uint, category string, maxPrice float64) (*model.PriceCeiling, error) {
	admin, err := s.userRepo.FindByID(adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotPermitted
		}
		return nil, err
	}
	if !s.authz.Has(admin.Role, model.CapabilitySetCeilings) {
		return nil, ErrReviewNotPermitted
	}

	fields := map[string]string{}
	if category == "" {
		fields["category"] = "category is required"
	}
	if maxPrice <= 0 {
		fields["max_price"] = "max price must be positive"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ceiling := &model.PriceCeiling{
		Category: category,
		MaxPrice: maxPrice,
		SetByID:  adminID,
	}
	if err := s.productRepo.UpsertCeiling(ceiling); err != nil {
		return nil, err
	}

	logger.Info("Price ceiling updated", map[string]interface{}{
		"category":  category,
		"max_price": maxPrice,
		"admin_id":  adminID,
	})

	// Ceilings only cap new listings; existing products are never repriced,
	// their sellers just get told.
	sellerIDs, err := s.userRepo.FindIDsByRole(model.RoleSeller)
	if err != nil {
		logger.Warn("Could not resolve sellers for ceiling notification", map[string]interface{}{
			"category": category,
		})
	} else {
		s.notifier.NotifyCeilingUpdated(ceiling, sellerIDs)
	}

	return ceiling, nil
}

func (s *productService) ListCeilings() ([]model.PriceCeiling, error) {
	return s.productRepo.ListCeilings()
}

func (s *productService) validateProductInput(input ProductInput) error {
	fields := map[string]string{}
	if input.Name == "" {
		fields["name"] = "name is required"
	}
	if input.Category == "" {
		fields["category"] = "category is required"
	}
	if input.Price <= 0 {
		fields["price"] = "price must be positive"
	}
	if input.Stock < 0 {
		fields["stock"] = "stock cannot be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *productService) checkCeiling(category string, price float64) error {
	ceiling, err := s.productRepo.FindCeilingByCategory(category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No ceiling set means no cap for the category
			return nil
		}
		return err
	}
	if price > ceiling.MaxPrice {
		return ErrPriceAboveCeiling
	}
	return nil
}
