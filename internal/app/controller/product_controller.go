package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/app/service"
	apperrors "github.com/opas/opas-backend/internal/errors"
	"github.com/opas/opas-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Unit        string  `json:"unit"`
	Stock       int     `json:"stock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Unit        *string  `json:"unit"`
	Stock       *int     `json:"stock"`
}

type SetCeilingRequest struct {
	Category string  `json:"category" binding:"required"`
	MaxPrice float64 `json:"max_price" binding:"required,gt=0"`
}

// Create lists a new product for the authenticated seller
// POST /api/v1/products
func (ctrl *ProductController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	product, err := ctrl.productService.Create(userID, service.ProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		Unit:        req.Unit,
		Stock:       req.Stock,
	})
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	log.Info("Product listed", map[string]interface{}{
		"product_id": product.ID,
		"seller_id":  userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product listed",
		"product": product,
	})
}

// Get returns one product
// GET /api/v1/products/:id
func (ctrl *ProductController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.Get(id)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// List returns products filtered by category, seller, or name
// GET /api/v1/products
func (ctrl *ProductController) List(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("seller_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "seller_id must be numeric")
			return
		}
		sellerID := uint(id)
		filter.SellerID = &sellerID
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := ctrl.productService.List(filter)
	if err != nil {
		log.Error("Failed to list products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Update edits the caller's own product
// PUT /api/v1/products/:id
func (ctrl *ProductController) Update(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	product, err := ctrl.productService.Update(userID, id, service.ProductUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Unit:        req.Unit,
		Stock:       req.Stock,
	})
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated",
		"product": product,
	})
}

// Delete removes the caller's own product
// DELETE /api/v1/products/:id
func (ctrl *ProductController) Delete(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(userID, id); err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product removed",
	})
}

// SetCeiling sets or updates the maximum listing price for a category
// PUT /api/v1/admin/ceilings
func (ctrl *ProductController) SetCeiling(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req SetCeilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	ceiling, err := ctrl.productService.SetCeiling(adminID, req.Category, req.MaxPrice)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	log.Info("Ceiling price updated", map[string]interface{}{
		"category":  ceiling.Category,
		"max_price": ceiling.MaxPrice,
		"admin_id":  adminID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Ceiling price updated",
		"ceiling": ceiling,
	})
}

// ListCeilings returns every category ceiling
// GET /api/v1/admin/ceilings
func (ctrl *ProductController) ListCeilings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	ceilings, err := ctrl.productService.ListCeilings()
	if err != nil {
		log.Error("Failed to list ceilings", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list ceilings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ceilings": ceilings,
	})
}

func (ctrl *ProductController) respondProductError(c *gin.Context, err error) {
	log := middleware.GetLoggerFromContext(c)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apperrors.RespondWithValidationError(c, validationErr.Fields)
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrNotProductOwner):
		apperrors.Forbidden(c, "This product belongs to another seller")
	case errors.Is(err, service.ErrSellerRoleRequired):
		apperrors.Forbidden(c, "Only approved sellers can list products")
	case errors.Is(err, service.ErrPriceAboveCeiling):
		apperrors.BadRequest(c, apperrors.ProductAboveCeiling, "The price exceeds the ceiling for this category")
	case errors.Is(err, service.ErrReviewNotPermitted):
		apperrors.Forbidden(c, "You do not have permission to manage ceilings")
	case errors.Is(err, service.ErrUserNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
	default:
		log.Error("Product operation failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "product")
	}
}
