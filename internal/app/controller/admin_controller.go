package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/app/service"
	"github.com/opas/opas-backend/internal/export"
	apperrors "github.com/opas/opas-backend/internal/errors"
	"github.com/opas/opas-backend/internal/middleware"
)

// AdminController is the back-office review surface: the registration queue,
// application detail, decisions, and document verification.
type AdminController struct {
	reviewService service.ReviewService
}

func NewAdminController(reviewService service.ReviewService) *AdminController {
	return &AdminController{reviewService: reviewService}
}

type DecisionRequest struct {
	Notes string `json:"notes"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
	Notes  string `json:"notes"`
}

type RequestInfoRequest struct {
	Message      string `json:"message" binding:"required"`
	DeadlineDays *int   `json:"deadline_days"`
}

type DocumentReviewRequest struct {
	Notes string `json:"notes"`
}

// ListRegistrations returns the paginated review queue
// GET /api/v1/admin/registrations
func (ctrl *AdminController) ListRegistrations(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, ok := parseRegistrationFilter(c)
	if !ok {
		return
	}

	result, err := ctrl.reviewService.List(filter)
	if err != nil {
		log.Error("Failed to list registrations", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list registrations")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegistration returns one application with documents and history
// GET /api/v1/admin/registrations/:id
func (ctrl *AdminController) GetRegistration(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reg, err := ctrl.reviewService.GetDetail(id)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			apperrors.NotFound(c, apperrors.RegistrationNotFound, "Registration not found")
			return
		}
		log.Error("Failed to load registration detail", err, map[string]interface{}{
			"registration_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get registration")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"registration": reg,
	})
}

// Approve approves an application and promotes the applicant to seller
// POST /api/v1/admin/registrations/:id/approve
func (ctrl *AdminController) Approve(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	reg, err := ctrl.reviewService.Approve(adminID, id, req.Notes)
	if err != nil {
		ctrl.respondDecisionError(c, err, id)
		return
	}

	log.Info("Registration approved", map[string]interface{}{
		"registration_id": id,
		"admin_id":        adminID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Registration approved",
		"registration": reg,
	})
}

// Reject rejects an application; a reason is mandatory
// POST /api/v1/admin/registrations/:id/reject
func (ctrl *AdminController) Reject(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.RegistrationReasonRequired, "A rejection reason is required")
		return
	}

	reg, err := ctrl.reviewService.Reject(adminID, id, req.Reason, req.Notes)
	if err != nil {
		ctrl.respondDecisionError(c, err, id)
		return
	}

	log.Info("Registration rejected", map[string]interface{}{
		"registration_id": id,
		"admin_id":        adminID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Registration rejected",
		"registration": reg,
	})
}

// RequestInfo sends an application back to the buyer for more information
// POST /api/v1/admin/registrations/:id/request-info
func (ctrl *AdminController) RequestInfo(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RequestInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "A message describing the missing information is required")
		return
	}

	reg, err := ctrl.reviewService.RequestMoreInfo(adminID, id, req.Message, req.DeadlineDays)
	if err != nil {
		ctrl.respondDecisionError(c, err, id)
		return
	}

	log.Info("More information requested", map[string]interface{}{
		"registration_id": id,
		"admin_id":        adminID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Information request sent to the applicant",
		"registration": reg,
	})
}

// VerifyDocument marks one uploaded document as verified
// POST /api/v1/admin/documents/:id/verify
func (ctrl *AdminController) VerifyDocument(c *gin.Context) {
	ctrl.reviewDocument(c, true)
}

// RejectDocument marks one uploaded document as rejected
// POST /api/v1/admin/documents/:id/reject
func (ctrl *AdminController) RejectDocument(c *gin.Context) {
	ctrl.reviewDocument(c, false)
}

func (ctrl *AdminController) reviewDocument(c *gin.Context, verify bool) {
	log := middleware.GetLoggerFromContext(c)

	adminID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DocumentReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	var doc *model.RegistrationDocument
	var err error
	if verify {
		doc, err = ctrl.reviewService.VerifyDocument(adminID, id, req.Notes)
	} else {
		doc, err = ctrl.reviewService.RejectDocument(adminID, id, req.Notes)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			apperrors.NotFound(c, apperrors.DocumentNotFound, "Document not found")
		case errors.Is(err, service.ErrDocumentAlreadyReviewed):
			apperrors.Conflict(c, apperrors.DocumentAlreadyReviewed, "This document has already been reviewed")
		case errors.Is(err, service.ErrReviewNotPermitted):
			apperrors.Forbidden(c, "You do not have permission to review documents")
		default:
			log.Error("Document review failed", err, map[string]interface{}{
				"document_id": id,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "review document")
		}
		return
	}

	log.Info("Document reviewed", map[string]interface{}{
		"document_id": id,
		"admin_id":    adminID,
		"status":      doc.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Document reviewed",
		"document": doc,
	})
}

// ExportRegistrations downloads the filtered queue as an XLSX workbook
// GET /api/v1/admin/registrations/export
func (ctrl *AdminController) ExportRegistrations(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, ok := parseRegistrationFilter(c)
	if !ok {
		return
	}

	data, err := ctrl.reviewService.Export(filter)
	if err != nil {
		log.Error("Failed to export registrations", err, nil)
		apperrors.InternalError(c, "Failed to generate the export file")
		return
	}

	filename := export.ExportFileName()
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (ctrl *AdminController) respondDecisionError(c *gin.Context, err error, registrationID uint) {
	log := middleware.GetLoggerFromContext(c)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apperrors.RespondWithValidationError(c, validationErr.Fields)
	case errors.Is(err, service.ErrRegistrationNotFound):
		apperrors.NotFound(c, apperrors.RegistrationNotFound, "Registration not found")
	case errors.Is(err, service.ErrInvalidRegistrationState):
		apperrors.Conflict(c, apperrors.RegistrationInvalidState, "This registration has already been decided")
	case errors.Is(err, service.ErrRegistrationConflict):
		apperrors.Conflict(c, apperrors.RegistrationStatusConflict, "Another reviewer acted on this registration first. Reload and review again")
	case errors.Is(err, service.ErrReviewNotPermitted):
		apperrors.Forbidden(c, "You do not have permission to review registrations")
	default:
		log.Error("Registration decision failed", err, map[string]interface{}{
			"registration_id": registrationID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "decide registration")
	}
}

// parseRegistrationFilter reads the queue filter from query parameters
func parseRegistrationFilter(c *gin.Context) (repository.RegistrationFilter, bool) {
	filter := repository.RegistrationFilter{
		Search:   c.Query("search"),
		SortDesc: c.Query("sort_order") == "desc",
	}

	if raw := c.Query("status"); raw != "" {
		status := model.RegistrationStatus(raw)
		switch status {
		case model.RegistrationStatusPending,
			model.RegistrationStatusApproved,
			model.RegistrationStatusRejected,
			model.RegistrationStatusRequestMoreInfo:
			filter.Status = &status
		default:
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown status filter")
			return filter, false
		}
	}

	if raw := c.Query("sort_by"); raw != "" {
		sortBy := repository.RegistrationSortField(raw)
		switch sortBy {
		case repository.SortBySubmittedAt, repository.SortByDaysPending, repository.SortByBuyerName:
			filter.SortBy = sortBy
		default:
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown sort field")
			return filter, false
		}
	}

	if raw := c.Query("submitted_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "submitted_from must be RFC3339")
			return filter, false
		}
		filter.SubmittedFrom = &t
	}
	if raw := c.Query("submitted_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "submitted_to must be RFC3339")
			return filter, false
		}
		filter.SubmittedTo = &t
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	return filter, true
}
