package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	"github.com/dealerops/partstrail-backend/pkg/config"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// staleStockRepo is the slice of the ledger repository this job reads.
type staleStockRepo interface {
	StaleReceived(ctx context.Context, reminderCutoff time.Time) ([]models.PartRecord, error)
	StampReminder(ctx context.Context, ids []uint, at time.Time) error
}

// StaleStockJob nags about received parts that nobody has picked up or
// posted. A reminder per part is sent at most once per cooldown window.
type StaleStockJob struct {
	repo     staleStockRepo
	ledger   ledger.Service
	notifier notifications.Service
	cfg      config.BriefConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewStaleStockJob builds the stale stock reminder job.
func NewStaleStockJob(repo staleStockRepo, ledgerSvc ledger.Service, notifier notifications.Service, cfg config.BriefConfig, logg *logger.Logger) (*StaleStockJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &StaleStockJob{
		repo:     repo,
		ledger:   ledgerSvc,
		notifier: notifier,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (j *StaleStockJob) Name() string { return "stale-stock-reminder" }

func (j *StaleStockJob) Run(ctx context.Context) error {
	now := j.now()
	rows, err := j.repo.StaleReceived(ctx, now.Add(-j.cfg.ReminderCooldown))
	if err != nil {
		return err
	}

	var reminded []uint
	for i := range rows {
		rec := &rows[i]
		days := j.inStockDays(rec, now)
		if days < j.cfg.StaleStockDays {
			continue
		}

		if rec.ServiceAdvisor == "" {
			j.logg.Warn(j.logg.WithPartID(ctx, rec.ID), "stale part has no advisor, skipping reminder")
			continue
		}
		message := fmt.Sprintf("%s for %s has been in stock %d days, please post or follow up", rec.ItemNo, rec.CustomerName, days)
		if err := j.notifier.NotifyAdvisor(ctx, rec.ServiceAdvisor, message); err != nil {
			return err
		}
		reminded = append(reminded, rec.ID)
	}

	if len(reminded) > 0 {
		if err := j.repo.StampReminder(ctx, reminded, now); err != nil {
			return err
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "reminders_sent", len(reminded)), "stale stock reminders processed")
	return nil
}

func (j *StaleStockJob) inStockDays(rec *models.PartRecord, now time.Time) int {
	duration := j.ledger.Aging(rec, now)
	var days int
	if _, err := fmt.Sscanf(duration, "IS %d days", &days); err != nil {
		return 0
	}
	return days
}
