package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrBuyerRoleRequired        = errors.New("only buyers can apply to become sellers")
	ErrActiveRegistrationExists = errors.New("an active registration already exists for this user")
	ErrRegistrationNotFound     = errors.New("registration not found")
	ErrNotRegistrationOwner     = errors.New("registration belongs to another user")
	ErrInvalidRegistrationState = errors.New("transition not allowed from the registration's current state")
	ErrRegistrationConflict     = errors.New("a concurrent transition already changed this registration")
)

// ValidationError carries per-field messages for malformed input. The caller
// can always recover by correcting the named fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid input: " + strings.Join(keys, ", ")
}

// DocumentInput is one document reference attached at submit/resubmit time.
// The file itself is uploaded to object storage beforehand.
type DocumentInput struct {
	Type      model.DocumentType `json:"document_type"`
	FileURL   string             `json:"file_url"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

type SubmitRegistrationInput struct {
	FarmName         string          `json:"farm_name"`
	FarmLocation     string          `json:"farm_location"`
	FarmSize         float64         `json:"farm_size"`
	ProductsGrown    []string        `json:"products_grown"`
	StoreName        string          `json:"store_name"`
	StoreDescription string          `json:"store_description"`
	Documents        []DocumentInput `json:"documents"`
}

// ResubmitRegistrationInput updates a registration that was sent back for more
// information. Nil pointers leave the corresponding field untouched; documents
// listed here supersede any earlier upload of the same type.
type ResubmitRegistrationInput struct {
	FarmName         *string         `json:"farm_name,omitempty"`
	FarmLocation     *string         `json:"farm_location,omitempty"`
	FarmSize         *float64        `json:"farm_size,omitempty"`
	ProductsGrown    []string        `json:"products_grown,omitempty"`
	StoreName        *string         `json:"store_name,omitempty"`
	StoreDescription *string         `json:"store_description,omitempty"`
	Documents        []DocumentInput `json:"documents,omitempty"`
}

// RegistrationService drives the buyer side of the seller registration
// lifecycle: submit, inspect, resubmit.
type RegistrationService interface {
	Submit(userID uint, input SubmitRegistrationInput) (*model.SellerRegistration, error)
	GetMyRegistration(userID uint) (*model.SellerRegistration, error)
	Resubmit(userID, registrationID uint, input ResubmitRegistrationInput) (*model.SellerRegistration, error)
}

type registrationService struct {
	db       *gorm.DB
	regRepo  repository.RegistrationRepository
	docRepo  repository.DocumentRepository
	userRepo repository.UserRepository
	notifier NotificationService
}

func NewRegistrationService(
	db *gorm.DB,
	regRepo repository.RegistrationRepository,
	docRepo repository.DocumentRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
) RegistrationService {
	return &registrationService{
		db:       db,
		regRepo:  regRepo,
		docRepo:  docRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *registrationService) Submit(userID uint, input SubmitRegistrationInput) (*model.SellerRegistration, error) {
	logger.Info("Submitting seller registration", map[string]interface{}{
		"user_id":   userID,
		"farm_name": input.FarmName,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// A rejected applicant submits a fresh record; sellers and admins have
	// nothing to apply for.
	if user.Role != model.RoleBuyer {
		logger.Warn("Non-buyer attempted seller registration", map[string]interface{}{
			"user_id": userID,
			"role":    user.Role,
		})
		return nil, ErrBuyerRoleRequired
	}

	if err := validateSubmitInput(input); err != nil {
		return nil, err
	}

	if _, err := s.regRepo.FindActiveByUserID(userID); err == nil {
		logger.Warn("User already has an active registration", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrActiveRegistrationExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	reg := &model.SellerRegistration{
		UserID:           userID,
		FarmName:         input.FarmName,
		FarmLocation:     input.FarmLocation,
		FarmSize:         input.FarmSize,
		ProductsGrown:    pq.StringArray(input.ProductsGrown),
		StoreName:        input.StoreName,
		StoreDescription: input.StoreDescription,
		Status:           model.RegistrationStatusPending,
		SubmittedAt:      now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reg).Error; err != nil {
			return err
		}
		for _, docInput := range input.Documents {
			doc := &model.RegistrationDocument{
				RegistrationID: reg.ID,
				Type:           docInput.Type,
				FileURL:        docInput.FileURL,
				Status:         model.DocumentStatusPending,
				UploadedAt:     now,
				ExpiresAt:      docInput.ExpiresAt,
			}
			if err := s.docRepo.Create(tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create seller registration", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	// Best-effort: the committed submission stands even if dispatch fails
	s.notifier.NotifySubmissionReceived(reg, false)

	logger.Info("Seller registration submitted", map[string]interface{}{
		"registration_id": reg.ID,
		"user_id":         userID,
	})

	result, err := s.regRepo.FindByIDWithDetails(reg.ID)
	if err != nil {
		return reg, nil
	}
	return result, nil
}

func (s *registrationService) GetMyRegistration(userID uint) (*model.SellerRegistration, error) {
	reg, err := s.regRepo.FindLatestByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) Resubmit(userID, registrationID uint, input ResubmitRegistrationInput) (*model.SellerRegistration, error) {
	logger.Info("Resubmitting seller registration", map[string]interface{}{
		"registration_id": registrationID,
		"user_id":         userID,
	})

	reg, err := s.regRepo.FindByID(registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	if reg.UserID != userID {
		return nil, ErrNotRegistrationOwner
	}

	if reg.Status != model.RegistrationStatusRequestMoreInfo {
		logger.Warn("Resubmission attempted from invalid state", map[string]interface{}{
			"registration_id": registrationID,
			"status":          reg.Status,
		})
		return nil, ErrInvalidRegistrationState
	}

	if err := validateDocumentInputs(input.Documents, false); err != nil {
		return nil, err
	}

	// Back to pending; submitted_at keeps its original value so review SLAs
	// run from the first submission. reviewed_at clears until an admin looks
	// at the updated application.
	updates := map[string]interface{}{
		"status":               model.RegistrationStatusPending,
		"reviewed_at":          nil,
		"info_request_message": "",
		"info_deadline_at":     nil,
	}
	applyFieldUpdates(updates, input)

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		applied, err := s.regRepo.TransitionStatus(tx, reg.ID,
			[]model.RegistrationStatus{model.RegistrationStatusRequestMoreInfo}, updates)
		if err != nil {
			return err
		}
		if !applied {
			return ErrRegistrationConflict
		}

		if len(input.Documents) > 0 {
			types := make([]model.DocumentType, 0, len(input.Documents))
			for _, docInput := range input.Documents {
				types = append(types, docInput.Type)
			}
			if err := s.docRepo.MarkSuperseded(tx, reg.ID, types); err != nil {
				return err
			}
			for _, docInput := range input.Documents {
				doc := &model.RegistrationDocument{
					RegistrationID: reg.ID,
					Type:           docInput.Type,
					FileURL:        docInput.FileURL,
					Status:         model.DocumentStatusPending,
					UploadedAt:     now,
					ExpiresAt:      docInput.ExpiresAt,
				}
				if err := s.docRepo.Create(tx, doc); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.regRepo.FindByIDWithDetails(reg.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifySubmissionReceived(updated, true)

	logger.Info("Seller registration resubmitted", map[string]interface{}{
		"registration_id": reg.ID,
		"user_id":         userID,
	})

	return updated, nil
}

func validateSubmitInput(input SubmitRegistrationInput) error {
	fields := map[string]string{}

	if strings.TrimSpace(input.FarmName) == "" {
		fields["farm_name"] = "farm name is required"
	}
	if strings.TrimSpace(input.StoreName) == "" {
		fields["store_name"] = "store name is required"
	}
	if len(input.Documents) == 0 {
		fields["documents"] = "at least one document is required"
	}

	if err := validateDocumentInputs(input.Documents, true); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			for k, v := range vErr.Fields {
				fields[k] = v
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateDocumentInputs(docs []DocumentInput, required bool) error {
	fields := map[string]string{}

	seen := map[model.DocumentType]bool{}
	for i, doc := range docs {
		key := fmt.Sprintf("documents[%d]", i)
		if !model.ValidDocumentType(doc.Type) {
			fields[key] = fmt.Sprintf("unknown document type %q", doc.Type)
			continue
		}
		if seen[doc.Type] {
			fields[key] = fmt.Sprintf("duplicate document type %q", doc.Type)
			continue
		}
		seen[doc.Type] = true
		if strings.TrimSpace(doc.FileURL) == "" {
			fields[key] = "file_url is required"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func applyFieldUpdates(updates map[string]interface{}, input ResubmitRegistrationInput) {
	if input.FarmName != nil {
		updates["farm_name"] = *input.FarmName
	}
	if input.FarmLocation != nil {
		updates["farm_location"] = *input.FarmLocation
	}
	if input.FarmSize != nil {
		updates["farm_size"] = *input.FarmSize
	}
	if input.ProductsGrown != nil {
		updates["products_grown"] = pq.StringArray(input.ProductsGrown)
	}
	if input.StoreName != nil {
		updates["store_name"] = *input.StoreName
	}
	if input.StoreDescription != nil {
		updates["store_description"] = *input.StoreDescription
	}
}
