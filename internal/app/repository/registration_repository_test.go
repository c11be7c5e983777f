package repository

import (
	"testing"
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRegistrationRepoTest(t *testing.T) (*gorm.DB, RegistrationRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewRegistrationRepository(testDB)
}

func createTestUser(t *testing.T, conn *gorm.DB, email, name string, role model.UserRole) *model.User {
	user := &model.User{
		Email:        email,
		PasswordHash: "hashed",
		Name:         name,
		Role:         role,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func createTestRegistration(t *testing.T, conn *gorm.DB, userID uint, status model.RegistrationStatus, submittedAt time.Time) *model.SellerRegistration {
	reg := &model.SellerRegistration{
		UserID:      userID,
		FarmName:    "Green Valley Farm",
		StoreName:   "Green Valley Store",
		Status:      status,
		SubmittedAt: submittedAt,
	}
	require.NoError(t, conn.Create(reg).Error)
	return reg
}

func TestRegistrationRepository_FindActiveByUserID(t *testing.T) {
	conn, repo := setupRegistrationRepoTest(t)
	user := createTestUser(t, conn, "buyer@example.com", "Buyer", model.RoleBuyer)

	// A rejected registration is not active
	createTestRegistration(t, conn, user.ID, model.RegistrationStatusRejected, time.Now().Add(-48*time.Hour))

	_, err := repo.FindActiveByUserID(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active := createTestRegistration(t, conn, user.ID, model.RegistrationStatusPending, time.Now())

	found, err := repo.FindActiveByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
}

func TestRegistrationRepository_TransitionStatus(t *testing.T) {
	conn, repo := setupRegistrationRepoTest(t)
	user := createTestUser(t, conn, "buyer@example.com", "Buyer", model.RoleBuyer)
	reg := createTestRegistration(t, conn, user.ID, model.RegistrationStatusPending, time.Now())

	now := time.Now()

	// Transition succeeds while the record holds an expected status
	applied, err := repo.TransitionStatus(nil, reg.ID,
		[]model.RegistrationStatus{model.RegistrationStatusPending},
		map[string]interface{}{
			"status":      model.RegistrationStatusApproved,
			"reviewed_at": now,
			"approved_at": now,
		})
	require.NoError(t, err)
	assert.True(t, applied)

	var updated model.SellerRegistration
	require.NoError(t, conn.First(&updated, reg.ID).Error)
	assert.Equal(t, model.RegistrationStatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedAt)

	// A second transition from the same expected status finds no matching row
	applied, err = repo.TransitionStatus(nil, reg.ID,
		[]model.RegistrationStatus{model.RegistrationStatusPending},
		map[string]interface{}{"status": model.RegistrationStatusRejected})
	require.NoError(t, err)
	assert.False(t, applied)

	// The record keeps its first decision
	require.NoError(t, conn.First(&updated, reg.ID).Error)
	assert.Equal(t, model.RegistrationStatusApproved, updated.Status)
}

func TestRegistrationRepository_List(t *testing.T) {
	conn, repo := setupRegistrationRepoTest(t)

	alice := createTestUser(t, conn, "alice@example.com", "Alice", model.RoleBuyer)
	bob := createTestUser(t, conn, "bob@example.com", "Bob", model.RoleBuyer)
	carol := createTestUser(t, conn, "carol@example.com", "Carol", model.RoleBuyer)

	createTestRegistration(t, conn, alice.ID, model.RegistrationStatusPending, time.Now().Add(-72*time.Hour))
	createTestRegistration(t, conn, bob.ID, model.RegistrationStatusApproved, time.Now().Add(-48*time.Hour))
	createTestRegistration(t, conn, carol.ID, model.RegistrationStatusPending, time.Now().Add(-24*time.Hour))

	t.Run("No filter returns everything", func(t *testing.T) {
		result, err := repo.List(RegistrationFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.TotalCount)
		assert.Len(t, result.Registrations, 3)
	})

	t.Run("Status filter", func(t *testing.T) {
		pending := model.RegistrationStatusPending
		result, err := repo.List(RegistrationFilter{Status: &pending})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalCount)
		for _, summary := range result.Registrations {
			assert.Equal(t, model.RegistrationStatusPending, summary.Status)
		}
	})

	t.Run("Search by buyer name", func(t *testing.T) {
		result, err := repo.List(RegistrationFilter{Search: "Alice"})
		require.NoError(t, err)
		require.Len(t, result.Registrations, 1)
		assert.Equal(t, "Alice", result.Registrations[0].BuyerName)
		assert.Equal(t, "alice@example.com", result.Registrations[0].BuyerEmail)
	})

	t.Run("Days pending sort puts oldest first", func(t *testing.T) {
		result, err := repo.List(RegistrationFilter{SortBy: SortByDaysPending, SortDesc: true})
		require.NoError(t, err)
		require.Len(t, result.Registrations, 3)
		assert.Equal(t, "Alice", result.Registrations[0].BuyerName)
		assert.GreaterOrEqual(t, result.Registrations[0].DaysPending, result.Registrations[1].DaysPending)
	})

	t.Run("Pagination", func(t *testing.T) {
		result, err := repo.List(RegistrationFilter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.TotalCount)
		assert.Len(t, result.Registrations, 1)
	})
}

func TestRegistrationRepository_FindOverdueInfoRequests(t *testing.T) {
	conn, repo := setupRegistrationRepoTest(t)
	user := createTestUser(t, conn, "buyer@example.com", "Buyer", model.RoleBuyer)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	overdue := createTestRegistration(t, conn, user.ID, model.RegistrationStatusRequestMoreInfo, time.Now().Add(-96*time.Hour))
	require.NoError(t, conn.Model(overdue).Update("info_deadline_at", past).Error)

	other := createTestUser(t, conn, "other@example.com", "Other", model.RoleBuyer)
	onTime := createTestRegistration(t, conn, other.ID, model.RegistrationStatusRequestMoreInfo, time.Now().Add(-96*time.Hour))
	require.NoError(t, conn.Model(onTime).Update("info_deadline_at", future).Error)

	regs, err := repo.FindOverdueInfoRequests(time.Now())
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, overdue.ID, regs[0].ID)
}
