package errors

// Error code constants returned in API responses.
// Format: CATEGORY_SPECIFIC_DETAIL. The client maps these to display messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Seller registration (REGISTRATION_) ====================
	RegistrationNotFound       = "REGISTRATION_NOT_FOUND"
	RegistrationActiveExists   = "REGISTRATION_ACTIVE_EXISTS"
	RegistrationInvalidState   = "REGISTRATION_INVALID_STATE"
	RegistrationStatusConflict = "REGISTRATION_STATUS_CONFLICT"
	RegistrationReasonRequired = "REGISTRATION_REASON_REQUIRED"
	RegistrationNotOwner       = "REGISTRATION_NOT_OWNER"

	// ==================== Documents (DOCUMENT_) ====================
	DocumentNotFound        = "DOCUMENT_NOT_FOUND"
	DocumentDuplicateType   = "DOCUMENT_DUPLICATE_TYPE"
	DocumentMissing         = "DOCUMENT_MISSING"
	DocumentAlreadyReviewed = "DOCUMENT_ALREADY_REVIEWED"

	// ==================== Products (PRODUCT_) ====================
	ProductNotFound     = "PRODUCT_NOT_FOUND"
	ProductAboveCeiling = "PRODUCT_ABOVE_CEILING"
	ProductInvalidPrice = "PRODUCT_INVALID_PRICE"
	CeilingNotFound     = "CEILING_NOT_FOUND"

	// ==================== Notifications (NOTIFICATION_) ====================
	NotificationNotFound = "NOTIFICATION_NOT_FOUND"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal errors (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
