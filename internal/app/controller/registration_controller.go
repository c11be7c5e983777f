package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opas/opas-backend/internal/app/service"
	apperrors "github.com/opas/opas-backend/internal/errors"
	"github.com/opas/opas-backend/internal/middleware"
)

// RegistrationController exposes the buyer side of the seller registration
// workflow: submitting an application, checking its state, and resubmitting
// after an information request.
type RegistrationController struct {
	registrationService service.RegistrationService
}

func NewRegistrationController(registrationService service.RegistrationService) *RegistrationController {
	return &RegistrationController{registrationService: registrationService}
}

// Submit files a new seller registration
// POST /api/v1/registrations
func (ctrl *RegistrationController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req service.SubmitRegistrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration submission", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	reg, err := ctrl.registrationService.Submit(userID, req)
	if err != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.As(err, &validationErr):
			log.Warn("Registration submission failed validation", map[string]interface{}{
				"user_id": userID,
				"fields":  validationErr.Fields,
			})
			apperrors.RespondWithValidationError(c, validationErr.Fields)
		case errors.Is(err, service.ErrActiveRegistrationExists):
			log.Warn("Registration submission blocked by active application", map[string]interface{}{
				"user_id": userID,
			})
			apperrors.Conflict(c, apperrors.RegistrationActiveExists, "You already have an application under review")
		case errors.Is(err, service.ErrBuyerRoleRequired):
			apperrors.Forbidden(c, "Only buyer accounts can apply to become sellers")
		case errors.Is(err, service.ErrUserNotFound):
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
		default:
			log.Error("Registration submission failed", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "submit registration")
		}
		return
	}

	log.Info("Seller registration submitted", map[string]interface{}{
		"registration_id": reg.ID,
		"user_id":         userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Registration submitted for review",
		"registration": reg,
	})
}

// GetMine returns the caller's most recent registration with documents and history
// GET /api/v1/registrations/me
func (ctrl *RegistrationController) GetMine(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	reg, err := ctrl.registrationService.GetMyRegistration(userID)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			apperrors.NotFound(c, apperrors.RegistrationNotFound, "You have not submitted a registration")
			return
		}
		log.Error("Failed to load registration", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get registration")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"registration": reg,
	})
}

// Resubmit answers an information request on an existing registration
// PUT /api/v1/registrations/:id/resubmit
func (ctrl *RegistrationController) Resubmit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	registrationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.ResubmitRegistrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid resubmission request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	reg, err := ctrl.registrationService.Resubmit(userID, registrationID, req)
	if err != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.As(err, &validationErr):
			apperrors.RespondWithValidationError(c, validationErr.Fields)
		case errors.Is(err, service.ErrRegistrationNotFound):
			apperrors.NotFound(c, apperrors.RegistrationNotFound, "Registration not found")
		case errors.Is(err, service.ErrNotRegistrationOwner):
			apperrors.Forbidden(c, "This registration belongs to another user")
		case errors.Is(err, service.ErrInvalidRegistrationState):
			apperrors.Conflict(c, apperrors.RegistrationInvalidState, "This registration is not awaiting more information")
		case errors.Is(err, service.ErrRegistrationConflict):
			apperrors.Conflict(c, apperrors.RegistrationStatusConflict, "The registration changed while you were editing. Reload and try again")
		default:
			log.Error("Resubmission failed", err, map[string]interface{}{
				"registration_id": registrationID,
				"user_id":         userID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "resubmit registration")
		}
		return
	}

	log.Info("Registration resubmitted", map[string]interface{}{
		"registration_id": reg.ID,
		"user_id":         userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Registration resubmitted for review",
		"registration": reg,
	})
}

// parseIDParam reads a numeric path parameter, responding on failure
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid ID in URL")
		return 0, false
	}
	return uint(id), true
}
