package service

import (
	"errors"
	"fmt"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/websocket"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotNotificationOwner = errors.New("notification belongs to another user")
)

// NotificationService owns in-app notification records and their realtime
// push. The dispatch helpers are fire-and-forget: failures are logged and
// never propagate into the workflow that triggered them.
type NotificationService interface {
	List(userID uint, notifType *model.NotificationType, isRead *bool, page, pageSize int) ([]model.Notification, int64, int64, error)
	UnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) error

	NotifySubmissionReceived(reg *model.SellerRegistration, resubmission bool)
	NotifyDecision(reg *model.SellerRegistration)
	NotifyInfoRequested(reg *model.SellerRegistration)
	NotifyInfoOverdue(reg *model.SellerRegistration)
	NotifyDocumentExpiring(doc *model.RegistrationDocument)
	NotifyCeilingUpdated(ceiling *model.PriceCeiling, sellerIDs []uint)
}

type notificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	hub      *websocket.Hub
}

// NewNotificationService creates the notification service; hub may be nil
// when realtime push is not wired (tests, seed command).
func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	hub *websocket.Hub,
) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		hub:      hub,
	}
}

func (s *notificationService) List(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	page, pageSize int,
) ([]model.Notification, int64, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize

	notifications, total, err := s.repo.FindByUser(userID, notifType, isRead, pageSize, offset)
	if err != nil {
		return nil, 0, 0, err
	}

	unreadCount, err := s.repo.UnreadCount(userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return notifications, total, unreadCount, nil
}

func (s *notificationService) UnreadCount(userID uint) (int64, error) {
	return s.repo.UnreadCount(userID)
}

func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.FindByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	if notification.UserID != userID {
		return nil, ErrNotNotificationOwner
	}

	if err := s.repo.MarkAsRead(notificationID); err != nil {
		return nil, err
	}

	notification.IsRead = true
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(userID uint) error {
	return s.repo.MarkAllAsRead(userID)
}

// NotifySubmissionReceived alerts every admin that a registration is waiting
func (s *notificationService) NotifySubmissionReceived(reg *model.SellerRegistration, resubmission bool) {
	adminIDs, err := s.userRepo.FindIDsByRole(model.RoleAdmin)
	if err != nil {
		logger.Error("Failed to look up admins for submission notification", err, map[string]interface{}{
			"registration_id": reg.ID,
		})
		return
	}

	notifType := model.NotificationTypeRegistrationSubmitted
	title := "New seller registration"
	content := fmt.Sprintf("%s applied to open the store %q", reg.FarmName, reg.StoreName)
	if resubmission {
		notifType = model.NotificationTypeRegistrationResubmitted
		title = "Registration resubmitted"
		content = fmt.Sprintf("%s resubmitted their application for %q", reg.FarmName, reg.StoreName)
	}

	for _, adminID := range adminIDs {
		s.dispatch(&model.Notification{
			UserID:                adminID,
			Type:                  notifType,
			Title:                 title,
			Content:               content,
			RelatedRegistrationID: &reg.ID,
		})
	}
}

// NotifyDecision tells the buyer the outcome of their application
func (s *notificationService) NotifyDecision(reg *model.SellerRegistration) {
	var notification *model.Notification
	switch reg.Status {
	case model.RegistrationStatusApproved:
		notification = &model.Notification{
			UserID:                reg.UserID,
			Type:                  model.NotificationTypeRegistrationApproved,
			Title:                 "Your registration was approved",
			Content:               fmt.Sprintf("Congratulations! You can now sell on OPAS as %q.", reg.StoreName),
			RelatedRegistrationID: &reg.ID,
		}
	case model.RegistrationStatusRejected:
		notification = &model.Notification{
			UserID:                reg.UserID,
			Type:                  model.NotificationTypeRegistrationRejected,
			Title:                 "Your registration was rejected",
			Content:               fmt.Sprintf("Your application was rejected: %s", reg.RejectionReason),
			RelatedRegistrationID: &reg.ID,
		}
	default:
		logger.Warn("NotifyDecision called with non-terminal status", map[string]interface{}{
			"registration_id": reg.ID,
			"status":          reg.Status,
		})
		return
	}

	s.dispatch(notification)
}

func (s *notificationService) NotifyInfoRequested(reg *model.SellerRegistration) {
	content := fmt.Sprintf("The reviewer needs more information: %s", reg.InfoRequestMessage)
	if reg.InfoDeadlineAt != nil {
		content = fmt.Sprintf("%s (please respond by %s)", content, reg.InfoDeadlineAt.Format("2006-01-02"))
	}

	s.dispatch(&model.Notification{
		UserID:                reg.UserID,
		Type:                  model.NotificationTypeInfoRequested,
		Title:                 "More information requested",
		Content:               content,
		RelatedRegistrationID: &reg.ID,
	})
}

func (s *notificationService) NotifyInfoOverdue(reg *model.SellerRegistration) {
	s.dispatch(&model.Notification{
		UserID:                reg.UserID,
		Type:                  model.NotificationTypeInfoDeadlineOverdue,
		Title:                 "Registration response overdue",
		Content:               "The deadline to provide the requested information has passed. Please update your application.",
		RelatedRegistrationID: &reg.ID,
	})
}

// NotifyDocumentExpiring alerts admins that a submitted document is close to expiry
func (s *notificationService) NotifyDocumentExpiring(doc *model.RegistrationDocument) {
	adminIDs, err := s.userRepo.FindIDsByRole(model.RoleAdmin)
	if err != nil {
		logger.Error("Failed to look up admins for document expiry notification", err, map[string]interface{}{
			"document_id": doc.ID,
		})
		return
	}

	for _, adminID := range adminIDs {
		s.dispatch(&model.Notification{
			UserID:                adminID,
			Type:                  model.NotificationTypeDocumentExpiring,
			Title:                 "Registration document expiring",
			Content:               fmt.Sprintf("A %s document on registration #%d is about to expire.", doc.Type, doc.RegistrationID),
			RelatedRegistrationID: &doc.RegistrationID,
			RelatedDocumentID:     &doc.ID,
		})
	}
}

func (s *notificationService) NotifyCeilingUpdated(ceiling *model.PriceCeiling, sellerIDs []uint) {
	for _, sellerID := range sellerIDs {
		s.dispatch(&model.Notification{
			UserID:  sellerID,
			Type:    model.NotificationTypeCeilingUpdated,
			Title:   "Price ceiling updated",
			Content: fmt.Sprintf("The maximum price for %q is now %.2f.", ceiling.Category, ceiling.MaxPrice),
		})
	}
}

// dispatch stores a notification and pushes it to connected clients.
// Best-effort on both legs.
func (s *notificationService) dispatch(notification *model.Notification) {
	if err := s.repo.Create(notification); err != nil {
		logger.Error("Failed to store notification", err, map[string]interface{}{
			"user_id": notification.UserID,
			"type":    notification.Type,
		})
		return
	}

	if s.hub != nil {
		s.hub.SendToUser(notification.UserID, notification)
	}
}
