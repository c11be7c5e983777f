package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func submitForReview(t *testing.T, env *registrationTestEnv, buyer *model.User) *model.SellerRegistration {
	reg, err := env.registrations.Submit(buyer.ID, validSubmitInput())
	require.NoError(t, err)
	return reg
}

func TestReviewService_Approve(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	approved, err := env.review.Approve(admin.ID, reg.ID, "documents check out")
	require.NoError(t, err)

	assert.Equal(t, model.RegistrationStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ReviewedAt)

	// The decision lands in the audit trail
	entries, err := env.historyRepo.FindByRegistrationID(reg.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.DecisionApproved, entries[0].Decision)
	assert.Equal(t, admin.ID, entries[0].AdminID)
	assert.Equal(t, "documents check out", entries[0].AdminNotes)

	// The applicant becomes a seller
	promoted, err := env.userRepo.FindByID(buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSeller, promoted.Role)

	// Terminal states do not move again
	_, err = env.review.Approve(admin.ID, reg.ID, "")
	assert.ErrorIs(t, err, ErrInvalidRegistrationState)

	entries, err = env.historyRepo.FindByRegistrationID(reg.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReviewService_Reject(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	_, err := env.review.Reject(admin.ID, reg.ID, "", "")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "rejection_reason")

	rejected, err := env.review.Reject(admin.ID, reg.ID, "tax document expired", "follow up next quarter")
	require.NoError(t, err)

	assert.Equal(t, model.RegistrationStatusRejected, rejected.Status)
	assert.Equal(t, "tax document expired", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	entries, err := env.historyRepo.FindByRegistrationID(reg.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.DecisionRejected, entries[0].Decision)
	assert.Equal(t, "tax document expired", entries[0].DecisionReason)

	// Rejection leaves the applicant a buyer
	unchanged, err := env.userRepo.FindByID(buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleBuyer, unchanged.Role)
}

func TestReviewService_RequestMoreInfo(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	_, err := env.review.RequestMoreInfo(admin.ID, reg.ID, "", nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "message")

	days := 3
	updated, err := env.review.RequestMoreInfo(admin.ID, reg.ID, "please attach a readable tax certificate", &days)
	require.NoError(t, err)

	assert.Equal(t, model.RegistrationStatusRequestMoreInfo, updated.Status)
	assert.Equal(t, "please attach a readable tax certificate", updated.InfoRequestMessage)
	require.NotNil(t, updated.InfoDeadlineAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, days), *updated.InfoDeadlineAt, time.Minute)

	// Not a decision, so no audit entry
	entries, err := env.historyRepo.FindByRegistrationID(reg.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Only fresh submissions can be sent back
	_, err = env.review.RequestMoreInfo(admin.ID, reg.ID, "and the business permit", nil)
	assert.ErrorIs(t, err, ErrInvalidRegistrationState)
}

func TestReviewService_Permissions(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	seller := env.createUser(t, "seller@example.com", "Seller", model.RoleSeller)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	_, err := env.review.Approve(seller.ID, reg.ID, "")
	assert.ErrorIs(t, err, ErrReviewNotPermitted)

	_, err = env.review.Approve(9999, reg.ID, "")
	assert.ErrorIs(t, err, ErrReviewNotPermitted)

	_, err = env.review.Approve(admin.ID, 9999, "")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestReviewService_DecisionConflict(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	// Load the record as a reviewing admin would see it
	stale, err := env.regRepo.FindByID(reg.ID)
	require.NoError(t, err)

	// Another admin approves while the first is still deciding
	_, err = env.review.Approve(admin.ID, reg.ID, "")
	require.NoError(t, err)

	svc, ok := env.review.(*reviewService)
	require.True(t, ok)

	_, err = svc.decide(admin, stale, model.DecisionRejected, "incomplete papers", "")
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	// The losing decision leaves no trace
	entries, err := env.historyRepo.FindByRegistrationID(reg.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.DecisionApproved, entries[0].Decision)

	current, err := env.regRepo.FindByID(reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusApproved, current.Status)
}

func TestReviewService_DocumentReview(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Buyer", model.RoleBuyer)
	seller := env.createUser(t, "seller@example.com", "Seller", model.RoleSeller)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)
	require.NotEmpty(t, reg.Documents)
	docID := reg.Documents[0].ID

	_, err := env.review.VerifyDocument(seller.ID, docID, "")
	assert.ErrorIs(t, err, ErrReviewNotPermitted)

	_, err = env.review.VerifyDocument(admin.ID, 9999, "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	verified, err := env.review.VerifyDocument(admin.ID, docID, "legible and current")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusVerified, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, admin.ID, *verified.VerifiedBy)
	require.NotNil(t, verified.VerifiedAt)
	assert.Equal(t, "legible and current", verified.Notes)

	// A document is reviewed at most once
	_, err = env.review.RejectDocument(admin.ID, docID, "changed my mind")
	assert.ErrorIs(t, err, ErrDocumentAlreadyReviewed)

	rejected, err := env.review.RejectDocument(admin.ID, reg.Documents[1].ID, "photo too blurry")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusRejected, rejected.Status)
}

func TestReviewService_ListAndExport(t *testing.T) {
	env := setupRegistrationTest(t)
	buyer := env.createUser(t, "buyer@example.com", "Alice Buyer", model.RoleBuyer)
	admin := env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	reg := submitForReview(t, env, buyer)

	pending := model.RegistrationStatusPending
	result, err := env.review.List(repository.RegistrationFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, result.Registrations, 1)
	assert.Equal(t, reg.ID, result.Registrations[0].ID)

	_, err = env.review.Approve(admin.ID, reg.ID, "")
	require.NoError(t, err)

	data, err := env.review.Export(repository.RegistrationFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "registration_id", rows[0][0])
	assert.Equal(t, "Alice Buyer", rows[1][1])
	assert.Equal(t, string(model.RegistrationStatusApproved), rows[1][7])
}
