package service

import (
	"testing"
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type registrationTestEnv struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	regRepo     repository.RegistrationRepository
	docRepo     repository.DocumentRepository
	historyRepo repository.ApprovalHistoryRepository
	notifRepo   repository.NotificationRepository

	registrations RegistrationService
	review        ReviewService
	notifications NotificationService
}

func setupRegistrationTest(t *testing.T) *registrationTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	env := &registrationTestEnv{
		db:          testDB,
		userRepo:    repository.NewUserRepository(testDB),
		regRepo:     repository.NewRegistrationRepository(testDB),
		docRepo:     repository.NewDocumentRepository(testDB),
		historyRepo: repository.NewApprovalHistoryRepository(testDB),
		notifRepo:   repository.NewNotificationRepository(testDB),
	}

	env.notifications = NewNotificationService(env.notifRepo, env.userRepo, nil)
	env.registrations = NewRegistrationService(testDB, env.regRepo, env.docRepo, env.userRepo, env.notifications)
	env.review = NewReviewService(
		testDB,
		env.regRepo,
		env.docRepo,
		env.historyRepo,
		env.userRepo,
		env.notifications,
		model.RoleCapabilities{},
		7,
	)

	return env
}

func (env *registrationTestEnv) createUser(t *testing.T, email, name string, role model.UserRole) *model.User {
	user := &model.User{
		Email:        email,
		PasswordHash: "hashed",
		Name:         name,
		Role:         role,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func validSubmitInput() SubmitRegistrationInput {
	return SubmitRegistrationInput{
		FarmName:      "Green Valley Farm",
		FarmLocation:  "Nueva Ecija",
		FarmSize:      2.5,
		ProductsGrown: []string{"rice", "tomatoes"},
		StoreName:     "Green Valley Store",
		Documents: []DocumentInput{
			{Type: model.DocumentTypeTaxID, FileURL: "https://files.example.com/tax.pdf"},
			{Type: model.DocumentTypeIDProof, FileURL: "https://files.example.com/id.pdf"},
		},
	}
}

func TestRegistrationService_Submit(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)

	reg, err := env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)
	require.NotNil(t, reg)

	assert.Equal(t, model.RegistrationStatusPending, reg.Status)
	assert.Equal(t, buyer.ID, reg.UserID)
	assert.Equal(t, "Green Valley Farm", reg.FarmName)
	assert.False(t, reg.SubmittedAt.IsZero())
	assert.Len(t, reg.Documents, 2)
	for _, doc := range reg.Documents {
		assert.Equal(t, model.DocumentStatusPending, doc.Status)
	}
	assert.Empty(t, reg.History)

	// Admins are notified about the new submission
	var count int64
	require.NoError(t, env.db.Model(&model.Notification{}).
		Where("type = ?", model.NotificationTypeRegistrationSubmitted).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegistrationService_Submit_Validation(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)

	tests := []struct {
		name      string
		mutate    func(*SubmitRegistrationInput)
		wantField string
	}{
		{
			name:      "Missing farm name",
			mutate:    func(in *SubmitRegistrationInput) { in.FarmName = "  " },
			wantField: "farm_name",
		},
		{
			name:      "Missing store name",
			mutate:    func(in *SubmitRegistrationInput) { in.StoreName = "" },
			wantField: "store_name",
		},
		{
			name:      "No documents",
			mutate:    func(in *SubmitRegistrationInput) { in.Documents = nil },
			wantField: "documents",
		},
		{
			name: "Unknown document type",
			mutate: func(in *SubmitRegistrationInput) {
				in.Documents[0].Type = "diploma"
			},
			wantField: "documents[0]",
		},
		{
			name: "Duplicate document type",
			mutate: func(in *SubmitRegistrationInput) {
				in.Documents[1].Type = in.Documents[0].Type
			},
			wantField: "documents[1]",
		},
		{
			name: "Document without file URL",
			mutate: func(in *SubmitRegistrationInput) {
				in.Documents[0].FileURL = ""
			},
			wantField: "documents[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validSubmitInput()
			tt.mutate(&input)

			reg, err := env.registrations.Submit(buyer.ID, input)
			assert.Nil(t, reg)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields, tt.wantField)
		})
	}
}

func TestRegistrationService_Submit_RoleAndDuplicates(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	seller := env.createUser(t, "seller@example.com", "Seller", model.RoleSeller)

	_, err := env.registrations.Submit(seller.ID, validSubmitInput())
	assert.ErrorIs(t, err, ErrBuyerRoleRequired)

	_, err = env.registrations.Submit(9999, validSubmitInput())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)

	// A second submission is rejected while the first is under review
	_, err = env.registrations.Submit(buyer.ID, validSubmitInput())
	assert.ErrorIs(t, err, ErrActiveRegistrationExists)
}

func TestRegistrationService_GetMyRegistration(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)

	_, err := env.registrations.GetMyRegistration(buyer.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	submitted, err := env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)

	found, err := env.registrations.GetMyRegistration(buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, found.ID)
	assert.Len(t, found.Documents, 2)
}

func TestRegistrationService_Resubmit(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)

	submitted, err := env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)
	originalSubmittedAt := submitted.SubmittedAt

	_, err = env.review.RequestMoreInfo(admin.ID, submitted.ID, "The tax document is unreadable", nil)
	require.NoError(t, err)

	newFarmName := "Green Valley Organic Farm"
	updated, err := env.registrations.Resubmit(buyer.ID, submitted.ID, ResubmitRegistrationInput{
		FarmName: &newFarmName,
		Documents: []DocumentInput{
			{Type: model.DocumentTypeTaxID, FileURL: "https://files.example.com/tax-v2.pdf"},
		},
	})
	require.NoError(t, err)

	// Same record, back in the review queue
	assert.Equal(t, submitted.ID, updated.ID)
	assert.Equal(t, model.RegistrationStatusPending, updated.Status)
	assert.Equal(t, newFarmName, updated.FarmName)
	assert.Nil(t, updated.ReviewedAt)
	assert.Empty(t, updated.InfoRequestMessage)
	assert.Nil(t, updated.InfoDeadlineAt)

	// The original submission time is preserved
	assert.WithinDuration(t, originalSubmittedAt, updated.SubmittedAt, time.Second)

	// The replaced tax document is superseded, not deleted
	docs, err := env.docRepo.FindByRegistrationID(submitted.ID, true)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	current, err := env.docRepo.FindByRegistrationID(submitted.ID, false)
	require.NoError(t, err)
	assert.Len(t, current, 2)
	for _, doc := range current {
		if doc.Type == model.DocumentTypeTaxID {
			assert.Equal(t, "https://files.example.com/tax-v2.pdf", doc.FileURL)
		}
	}

	// Info requests never touch the approval history
	entries, err := env.historyRepo.FindByRegistrationID(submitted.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRegistrationService_Resubmit_Guards(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	other := env.createUser(t, "other@example.com", "Other", model.RoleBuyer)

	submitted, err := env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)

	_, err = env.registrations.Resubmit(buyer.ID, 9999, ResubmitRegistrationInput{})
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = env.registrations.Resubmit(other.ID, submitted.ID, ResubmitRegistrationInput{})
	assert.ErrorIs(t, err, ErrNotRegistrationOwner)

	// Still pending, so there is nothing to answer
	_, err = env.registrations.Resubmit(buyer.ID, submitted.ID, ResubmitRegistrationInput{})
	assert.ErrorIs(t, err, ErrInvalidRegistrationState)
}
