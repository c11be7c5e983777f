package service

import (
	"testing"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupNotificationTest(t *testing.T) (*gorm.DB, NotificationService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	svc := NewNotificationService(
		repository.NewNotificationRepository(testDB),
		repository.NewUserRepository(testDB),
		nil,
	)
	return testDB, svc
}

func seedNotification(t *testing.T, conn *gorm.DB, userID uint, notifType model.NotificationType, isRead bool) *model.Notification {
	n := &model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   "Test",
		Content: "Test content",
		IsRead:  isRead,
	}
	require.NoError(t, conn.Create(n).Error)
	return n
}

func TestNotificationService_List(t *testing.T) {
	conn, svc := setupNotificationTest(t)

	seedNotification(t, conn, 1, model.NotificationTypeRegistrationApproved, false)
	seedNotification(t, conn, 1, model.NotificationTypeInfoRequested, true)
	seedNotification(t, conn, 2, model.NotificationTypeRegistrationRejected, false)

	notifications, total, unread, err := svc.List(1, nil, nil, 1, 20)
	require.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), unread)

	approved := model.NotificationTypeRegistrationApproved
	notifications, total, _, err = svc.List(1, &approved, nil, 1, 20)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, int64(1), total)

	isRead := false
	notifications, _, _, err = svc.List(1, nil, &isRead, 1, 20)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, approved, notifications[0].Type)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	conn, svc := setupNotificationTest(t)

	n := seedNotification(t, conn, 1, model.NotificationTypeRegistrationApproved, false)

	_, err := svc.MarkAsRead(9999, 1)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	// Another user's notification is off-limits
	_, err = svc.MarkAsRead(n.ID, 2)
	assert.ErrorIs(t, err, ErrNotNotificationOwner)

	marked, err := svc.MarkAsRead(n.ID, 1)
	require.NoError(t, err)
	assert.True(t, marked.IsRead)

	unread, err := svc.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestNotificationService_MarkAllAsRead(t *testing.T) {
	conn, svc := setupNotificationTest(t)

	seedNotification(t, conn, 1, model.NotificationTypeRegistrationApproved, false)
	seedNotification(t, conn, 1, model.NotificationTypeInfoRequested, false)
	seedNotification(t, conn, 2, model.NotificationTypeRegistrationRejected, false)

	require.NoError(t, svc.MarkAllAsRead(1))

	unread, err := svc.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// Other users' unread counts are untouched
	unread, err = svc.UnreadCount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}
