package scheduler

import (
	"time"

	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/app/service"
	"github.com/opas/opas-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// documentExpiryWindow is how far ahead the sweep warns about expiring documents
const documentExpiryWindow = 30 * 24 * time.Hour

// ReviewScheduler runs the daily review sweep: it flags info requests whose
// deadline has passed and documents nearing expiry. The sweep only notifies;
// it never transitions a registration on its own.
type ReviewScheduler struct {
	cron     *cron.Cron
	regRepo  repository.RegistrationRepository
	docRepo  repository.DocumentRepository
	notifier service.NotificationService
}

func NewReviewScheduler(
	regRepo repository.RegistrationRepository,
	docRepo repository.DocumentRepository,
	notifier service.NotificationService,
) *ReviewScheduler {
	return &ReviewScheduler{
		cron:     cron.New(),
		regRepo:  regRepo,
		docRepo:  docRepo,
		notifier: notifier,
	}
}

func (s *ReviewScheduler) Start() error {
	// Daily at 6:00 AM
	_, err := s.cron.AddFunc("0 6 * * *", s.RunSweep)
	if err != nil {
		logger.Error("Failed to add cron job for review sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Review scheduler started (daily at 6:00 AM)", nil)

	return nil
}

func (s *ReviewScheduler) Stop() {
	logger.Info("Stopping review scheduler...", nil)
	s.cron.Stop()
	logger.Info("Review scheduler stopped", nil)
}

// RunSweep executes one pass of the overdue and expiry checks. Exposed so the
// sweep can also be triggered outside the cron schedule.
func (s *ReviewScheduler) RunSweep() {
	now := time.Now()

	logger.Info("Starting review sweep", nil)

	overdue, err := s.regRepo.FindOverdueInfoRequests(now)
	if err != nil {
		logger.Error("Failed to load overdue info requests", err)
	} else {
		for i := range overdue {
			s.notifier.NotifyInfoOverdue(&overdue[i])
		}
		if len(overdue) > 0 {
			logger.Info("Flagged overdue info requests", map[string]interface{}{
				"count": len(overdue),
			})
		}
	}

	expiring, err := s.docRepo.FindExpiringBefore(now.Add(documentExpiryWindow))
	if err != nil {
		logger.Error("Failed to load expiring documents", err)
	} else {
		for i := range expiring {
			s.notifier.NotifyDocumentExpiring(&expiring[i])
		}
		if len(expiring) > 0 {
			logger.Info("Flagged expiring documents", map[string]interface{}{
				"count": len(expiring),
			})
		}
	}

	logger.Info("Review sweep complete", nil)
}
