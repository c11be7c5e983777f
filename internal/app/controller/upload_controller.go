package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opas/opas-backend/config"
	apperrors "github.com/opas/opas-backend/internal/errors"
	"github.com/opas/opas-backend/internal/middleware"
	"github.com/opas/opas-backend/internal/storage"
)

// UploadController issues pre-signed URLs so applicants upload registration
// documents directly to object storage.
type UploadController struct {
	storage   *storage.DocumentStorage
	uploadCfg *config.UploadConfig
}

func NewUploadController(docStorage *storage.DocumentStorage, uploadCfg *config.UploadConfig) *UploadController {
	return &UploadController{
		storage:   docStorage,
		uploadCfg: uploadCfg,
	}
}

type PresignUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
}

// PresignDocument returns a short-lived PUT URL for one document upload
// POST /api/v1/uploads/documents
func (ctrl *UploadController) PresignDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is invalid")
		return
	}

	if err := ctrl.storage.ValidateContentType(req.ContentType, ctrl.uploadCfg.AllowedTypes); err != nil {
		log.Warn("Rejected upload content type", map[string]interface{}{
			"user_id":      userID,
			"content_type": req.ContentType,
		})
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "This file type is not accepted")
		return
	}

	if err := ctrl.storage.ValidateFileSize(req.FileSize, ctrl.uploadCfg.MaxFileSize); err != nil {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "The file is too large")
		return
	}

	upload, err := ctrl.storage.PresignDocumentUpload(c.Request.Context(), userID, req.Filename, req.ContentType)
	if err != nil {
		log.Error("Failed to presign document upload", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Could not prepare the upload")
		return
	}

	log.Info("Document upload presigned", map[string]interface{}{
		"user_id": userID,
		"key":     upload.Key,
	})

	c.JSON(http.StatusOK, upload)
}
