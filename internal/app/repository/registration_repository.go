package repository

import (
	"time"

	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/pkg/logger"
	"gorm.io/gorm"
)

// RegistrationSortField names the supported list orderings
type RegistrationSortField string

const (
	SortBySubmittedAt RegistrationSortField = "submitted_at"
	SortByDaysPending RegistrationSortField = "days_pending"
	SortByBuyerName   RegistrationSortField = "buyer_name"
)

// RegistrationFilter narrows and orders the admin list query
type RegistrationFilter struct {
	Status        *model.RegistrationStatus
	Search        string // matched against buyer name and email
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	SortBy        RegistrationSortField
	SortDesc      bool
	Page          int
	PageSize      int
}

// RegistrationSummary is the lightweight row returned by the admin list
type RegistrationSummary struct {
	ID          uint                     `json:"id"`
	BuyerName   string                   `json:"buyer_name"`
	BuyerEmail  string                   `json:"buyer_email"`
	FarmName    string                   `json:"farm_name"`
	StoreName   string                   `json:"store_name"`
	Status      model.RegistrationStatus `json:"status"`
	SubmittedAt time.Time                `json:"submitted_at"`
	DaysPending int                      `json:"days_pending"`
}

type RegistrationListResult struct {
	Registrations []RegistrationSummary `json:"registrations"`
	TotalCount    int64                 `json:"total_count"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
}

type RegistrationRepository interface {
	Create(reg *model.SellerRegistration) error
	FindByID(id uint) (*model.SellerRegistration, error)
	FindByIDWithDetails(id uint) (*model.SellerRegistration, error)
	FindActiveByUserID(userID uint) (*model.SellerRegistration, error)
	FindLatestByUserID(userID uint) (*model.SellerRegistration, error)
	FindOverdueInfoRequests(now time.Time) ([]model.SellerRegistration, error)
	List(filter RegistrationFilter) (*RegistrationListResult, error)
	ListForExport(filter RegistrationFilter) ([]model.SellerRegistration, error)
	// TransitionStatus performs the conditional status write backing the
	// workflow's optimistic concurrency check: the update applies only while
	// the record is still in one of the expected states. Returns false when
	// another transition won the race.
	TransitionStatus(tx *gorm.DB, id uint, expected []model.RegistrationStatus, updates map[string]interface{}) (bool, error)
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(reg *model.SellerRegistration) error {
	logger.Debug("Creating seller registration", map[string]interface{}{
		"user_id": reg.UserID,
	})

	if err := r.db.Create(reg).Error; err != nil {
		logger.Error("Failed to create seller registration", err, map[string]interface{}{
			"user_id": reg.UserID,
		})
		return err
	}

	return nil
}

func (r *registrationRepository) FindByID(id uint) (*model.SellerRegistration, error) {
	var reg model.SellerRegistration
	if err := r.db.First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindByIDWithDetails(id uint) (*model.SellerRegistration, error) {
	var reg model.SellerRegistration
	err := r.db.
		Preload("User").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("registration_documents.uploaded_at ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("approval_histories.created_at ASC")
		}).
		First(&reg, id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindActiveByUserID returns the user's non-terminal registration, if any
func (r *registrationRepository) FindActiveByUserID(userID uint) (*model.SellerRegistration, error) {
	var reg model.SellerRegistration
	err := r.db.
		Where("user_id = ? AND status IN ?", userID, []model.RegistrationStatus{
			model.RegistrationStatusPending,
			model.RegistrationStatusRequestMoreInfo,
		}).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindLatestByUserID(userID uint) (*model.SellerRegistration, error) {
	var reg model.SellerRegistration
	err := r.db.
		Preload("Documents").
		Preload("History").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindOverdueInfoRequests(now time.Time) ([]model.SellerRegistration, error) {
	var regs []model.SellerRegistration
	err := r.db.
		Where("status = ? AND info_deadline_at IS NOT NULL AND info_deadline_at < ?",
			model.RegistrationStatusRequestMoreInfo, now).
		Find(&regs).Error
	return regs, err
}

func (r *registrationRepository) List(filter RegistrationFilter) (*RegistrationListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := r.baseListQuery(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = query.Select(
		"seller_registrations.id",
		"users.name AS buyer_name",
		"users.email AS buyer_email",
		"seller_registrations.farm_name",
		"seller_registrations.store_name",
		"seller_registrations.status",
		"seller_registrations.submitted_at",
	)

	switch filter.SortBy {
	case SortByBuyerName:
		query = query.Order("users.name " + sortDirection(filter.SortDesc))
	case SortByDaysPending:
		// oldest submission first means most days pending
		query = query.Order("seller_registrations.submitted_at " + sortDirection(!filter.SortDesc))
	default:
		query = query.Order("seller_registrations.submitted_at " + sortDirection(filter.SortDesc))
	}

	var summaries []RegistrationSummary
	err := query.
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range summaries {
		summaries[i].DaysPending = int(now.Sub(summaries[i].SubmittedAt).Hours() / 24)
	}

	return &RegistrationListResult{
		Registrations: summaries,
		TotalCount:    total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (r *registrationRepository) ListForExport(filter RegistrationFilter) ([]model.SellerRegistration, error) {
	var regs []model.SellerRegistration
	query := r.db.Model(&model.SellerRegistration{}).
		Joins("JOIN users ON users.id = seller_registrations.user_id").
		Preload("User")

	query = applyRegistrationFilter(query, filter)

	err := query.Order("seller_registrations.submitted_at ASC").Find(&regs).Error
	return regs, err
}

func (r *registrationRepository) TransitionStatus(
	tx *gorm.DB,
	id uint,
	expected []model.RegistrationStatus,
	updates map[string]interface{},
) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.Model(&model.SellerRegistration{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to transition registration status", result.Error, map[string]interface{}{
			"registration_id": id,
		})
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *registrationRepository) baseListQuery(filter RegistrationFilter) *gorm.DB {
	query := r.db.Model(&model.SellerRegistration{}).
		Joins("JOIN users ON users.id = seller_registrations.user_id")
	return applyRegistrationFilter(query, filter)
}

func applyRegistrationFilter(query *gorm.DB, filter RegistrationFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("seller_registrations.status = ?", *filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("users.name LIKE ? OR users.email LIKE ?", like, like)
	}
	if filter.SubmittedFrom != nil {
		query = query.Where("seller_registrations.submitted_at >= ?", *filter.SubmittedFrom)
	}
	if filter.SubmittedTo != nil {
		query = query.Where("seller_registrations.submitted_at <= ?", *filter.SubmittedTo)
	}
	return query
}

func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
