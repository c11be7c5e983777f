package service

import (
	"errors"
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/export"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrReviewNotPermitted      = errors.New("caller may not review seller registrations")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrDocumentAlreadyReviewed = errors.New("document has already been reviewed")
)

// ReviewService is the admin surface of the registration workflow: listing,
// detail, the three decisions, and per-document verification.
//
// Every decision is a transactional read-modify-write: the status mutation
// only applies while the record still holds the status the admin saw, so when
// two admins race exactly one wins and the other gets ErrRegistrationConflict.
type ReviewService interface {
	List(filter repository.RegistrationFilter) (*repository.RegistrationListResult, error)
	GetDetail(id uint) (*model.SellerRegistration, error)
	Approve(adminID, registrationID uint, notes string) (*model.SellerRegistration, error)
	Reject(adminID, registrationID uint, reason, notes string) (*model.SellerRegistration, error)
	RequestMoreInfo(adminID, registrationID uint, message string, deadlineDays *int) (*model.SellerRegistration, error)
	VerifyDocument(adminID, documentID uint, notes string) (*model.RegistrationDocument, error)
	RejectDocument(adminID, documentID uint, notes string) (*model.RegistrationDocument, error)
	Export(filter repository.RegistrationFilter) ([]byte, error)
}

type reviewService struct {
	db                  *gorm.DB
	regRepo             repository.RegistrationRepository
	docRepo             repository.DocumentRepository
	historyRepo         repository.ApprovalHistoryRepository
	userRepo            repository.UserRepository
	notifier            NotificationService
	authz               model.CapabilityChecker
	defaultDeadlineDays int
}

func NewReviewService(
	db *gorm.DB,
	regRepo repository.RegistrationRepository,
	docRepo repository.DocumentRepository,
	historyRepo repository.ApprovalHistoryRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	authz model.CapabilityChecker,
	defaultDeadlineDays int,
) ReviewService {
	if defaultDeadlineDays <= 0 {
		defaultDeadlineDays = 7
	}
	return &reviewService{
		db:                  db,
		regRepo:             regRepo,
		docRepo:             docRepo,
		historyRepo:         historyRepo,
		userRepo:            userRepo,
		notifier:            notifier,
		authz:               authz,
		defaultDeadlineDays: defaultDeadlineDays,
	}
}

func (s *reviewService) List(filter repository.RegistrationFilter) (*repository.RegistrationListResult, error) {
	return s.regRepo.List(filter)
}

func (s *reviewService) GetDetail(id uint) (*model.SellerRegistration, error) {
	reg, err := s.regRepo.FindByIDWithDetails(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (s *reviewService) Approve(adminID, registrationID uint, notes string) (*model.SellerRegistration, error) {
	admin, reg, err := s.loadForDecision(adminID, registrationID)
	if err != nil {
		return nil, err
	}

	logger.Info("Approving seller registration", map[string]interface{}{
		"registration_id": registrationID,
		"admin_id":        adminID,
	})

	return s.decide(admin, reg, model.DecisionApproved, "", notes)
}

func (s *reviewService) Reject(adminID, registrationID uint, reason, notes string) (*model.SellerRegistration, error) {
	if reason == "" {
		return nil, &ValidationError{Fields: map[string]string{
			"rejection_reason": "a rejection reason is required",
		}}
	}

	admin, reg, err := s.loadForDecision(adminID, registrationID)
	if err != nil {
		return nil, err
	}

	logger.Info("Rejecting seller registration", map[string]interface{}{
		"registration_id": registrationID,
		"admin_id":        adminID,
	})

	return s.decide(admin, reg, model.DecisionRejected, reason, notes)
}

func (s *reviewService) RequestMoreInfo(adminID, registrationID uint, message string, deadlineDays *int) (*model.SellerRegistration, error) {
	if message == "" {
		return nil, &ValidationError{Fields: map[string]string{
			"message": "a description of the missing information is required",
		}}
	}

	admin, reg, err := s.loadForDecision(adminID, registrationID)
	if err != nil {
		return nil, err
	}

	// Info requests only make sense against a fresh submission
	if reg.Status != model.RegistrationStatusPending {
		return nil, ErrInvalidRegistrationState
	}

	days := s.defaultDeadlineDays
	if deadlineDays != nil && *deadlineDays > 0 {
		days = *deadlineDays
	}

	now := time.Now()
	deadline := now.AddDate(0, 0, days)

	applied, err := s.regRepo.TransitionStatus(nil, reg.ID,
		[]model.RegistrationStatus{model.RegistrationStatusPending},
		map[string]interface{}{
			"status":               model.RegistrationStatusRequestMoreInfo,
			"reviewed_at":          now,
			"info_request_message": message,
			"info_deadline_at":     deadline,
		})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrRegistrationConflict
	}

	updated, err := s.regRepo.FindByIDWithDetails(reg.ID)
	if err != nil {
		return nil, err
	}

	// No approval history entry: this is not a terminal decision
	s.notifier.NotifyInfoRequested(updated)

	logger.Info("Requested more information on registration", map[string]interface{}{
		"registration_id": reg.ID,
		"admin_id":        admin.ID,
		"deadline":        deadline,
	})

	return updated, nil
}

func (s *reviewService) VerifyDocument(adminID, documentID uint, notes string) (*model.RegistrationDocument, error) {
	return s.reviewDocument(adminID, documentID, model.DocumentStatusVerified, notes)
}

func (s *reviewService) RejectDocument(adminID, documentID uint, notes string) (*model.RegistrationDocument, error) {
	return s.reviewDocument(adminID, documentID, model.DocumentStatusRejected, notes)
}

func (s *reviewService) Export(filter repository.RegistrationFilter) ([]byte, error) {
	regs, err := s.regRepo.ListForExport(filter)
	if err != nil {
		return nil, err
	}
	return export.RegistrationWorkbook(regs)
}

// loadForDecision resolves the admin and the registration and runs the checks
// shared by every decision: capability, existence, and non-terminal state.
func (s *reviewService) loadForDecision(adminID, registrationID uint) (*model.User, *model.SellerRegistration, error) {
	admin, err := s.userRepo.FindByID(adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrReviewNotPermitted
		}
		return nil, nil, err
	}

	if !s.authz.Has(admin.Role, model.CapabilityApproveSellers) {
		logger.Warn("Caller lacks seller-approval capability", map[string]interface{}{
			"admin_id": adminID,
			"role":     admin.Role,
		})
		return nil, nil, ErrReviewNotPermitted
	}

	reg, err := s.regRepo.FindByID(registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRegistrationNotFound
		}
		return nil, nil, err
	}

	if reg.Status.Terminal() {
		logger.Warn("Decision attempted on terminal registration", map[string]interface{}{
			"registration_id": registrationID,
			"status":          reg.Status,
		})
		return nil, nil, ErrInvalidRegistrationState
	}

	return admin, reg, nil
}

// decide finalizes an approve/reject in one transaction: the conditional
// status write, the audit entry, and (on approval) the role promotion. The
// write is conditioned on the status the admin saw when the record was
// loaded, so a racing decision leaves exactly one winner.
func (s *reviewService) decide(
	admin *model.User,
	reg *model.SellerRegistration,
	decision model.Decision,
	reason, notes string,
) (*model.SellerRegistration, error) {
	now := time.Now()

	updates := map[string]interface{}{
		"reviewed_at": now,
	}
	switch decision {
	case model.DecisionApproved:
		updates["status"] = model.RegistrationStatusApproved
		updates["approved_at"] = now
	case model.DecisionRejected:
		updates["status"] = model.RegistrationStatusRejected
		updates["rejected_at"] = now
		updates["rejection_reason"] = reason
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		applied, err := s.regRepo.TransitionStatus(tx, reg.ID,
			[]model.RegistrationStatus{reg.Status}, updates)
		if err != nil {
			return err
		}
		if !applied {
			return ErrRegistrationConflict
		}

		entry := &model.ApprovalHistory{
			UserID:         reg.UserID,
			RegistrationID: reg.ID,
			AdminID:        admin.ID,
			Decision:       decision,
			DecisionReason: reason,
			AdminNotes:     notes,
			EffectiveFrom:  now,
		}
		if err := s.historyRepo.Create(tx, entry); err != nil {
			return err
		}

		if decision == model.DecisionApproved {
			// conditional on the buyer role so a repeated promotion is a no-op
			if err := tx.Model(&model.User{}).
				Where("id = ? AND role = ?", reg.UserID, model.RoleBuyer).
				Update("role", model.RoleSeller).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRegistrationConflict) {
			logger.Error("Failed to finalize registration decision", err, map[string]interface{}{
				"registration_id": reg.ID,
				"decision":        decision,
			})
		}
		return nil, err
	}

	updated, err := s.regRepo.FindByIDWithDetails(reg.ID)
	if err != nil {
		return nil, err
	}

	// Dispatch failures never roll back the committed decision
	s.notifier.NotifyDecision(updated)

	logger.Info("Registration decision finalized", map[string]interface{}{
		"registration_id": reg.ID,
		"admin_id":        admin.ID,
		"decision":        decision,
	})

	return updated, nil
}

func (s *reviewService) reviewDocument(adminID, documentID uint, status model.DocumentStatus, notes string) (*model.RegistrationDocument, error) {
	admin, err := s.userRepo.FindByID(adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotPermitted
		}
		return nil, err
	}

	if !s.authz.Has(admin.Role, model.CapabilityVerifyDocuments) {
		return nil, ErrReviewNotPermitted
	}

	doc, err := s.docRepo.FindByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	applied, err := s.docRepo.Review(doc.ID, status, admin.ID, notes)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrDocumentAlreadyReviewed
	}

	logger.Info("Registration document reviewed", map[string]interface{}{
		"document_id": documentID,
		"admin_id":    adminID,
		"status":      status,
	})

	return s.docRepo.FindByID(doc.ID)
}
