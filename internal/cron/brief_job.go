package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dealerops/partstrail-backend/internal/aging"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/mailer"
	"github.com/dealerops/partstrail-backend/pkg/config"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// BriefJob mails each advisor a morning summary of their open parts:
// arrivals since the last brief, back orders aging past the limit, and
// items whose ETA is today. Advisors without anything to report get no
// email.
type BriefJob struct {
	ledger    ledger.Service
	directory directory.Service
	mailer    mailer.Mailer
	cfg       config.BriefConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewBriefJob builds the morning brief job.
func NewBriefJob(ledgerSvc ledger.Service, dir directory.Service, m mailer.Mailer, cfg config.BriefConfig, logg *logger.Logger) (*BriefJob, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory service required")
	}
	if m == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &BriefJob{
		ledger:    ledgerSvc,
		directory: dir,
		mailer:    m,
		cfg:       cfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (j *BriefJob) Name() string { return "advisor-brief" }

func (j *BriefJob) Run(ctx context.Context) error {
	now := j.now()
	today := now.Format("2006-01-02")
	arrivalCutoff := now.Add(-j.cfg.NewArrivalWindow)

	rows, err := j.ledger.ListActive(ctx, ledger.ViewScope{Roles: enums.RoleSet{enums.UserRoleAdmin}})
	if err != nil {
		return err
	}

	briefs := make(map[string]*mailer.BriefContent)
	for i := range rows {
		rec := &rows[i]
		if rec.ServiceAdvisor == "" {
			continue
		}

		brief, ok := briefs[rec.ServiceAdvisor]
		if !ok {
			brief = &mailer.BriefContent{Advisor: rec.ServiceAdvisor}
			briefs[rec.ServiceAdvisor] = brief
		}

		payload := j.payloadFor(rec, now)
		switch {
		case rec.ReceivedDate != nil && rec.ReceivedDate.After(arrivalCutoff):
			brief.NewArrivals = append(brief.NewArrivals, payload)
		case rec.ItemStatus == enums.ItemStatusBackOrder && j.backOrderDays(rec, now) > j.cfg.CriticalAgingDays:
			brief.CriticalAging = append(brief.CriticalAging, payload)
		case rec.ETA == today && !rec.ItemStatus.IsReceived():
			brief.DueToday = append(brief.DueToday, payload)
		}
	}

	var jobErr error
	sent := 0
	for advisor, brief := range briefs {
		if brief.Empty() {
			continue
		}
		email, err := j.directory.AdvisorEmail(ctx, advisor)
		if err != nil {
			if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeNotFound {
				j.logg.Warn(j.logg.WithAdvisor(ctx, advisor), "advisor has no email, skipping brief")
				continue
			}
			jobErr = multierr.Append(jobErr, err)
			continue
		}
		if err := j.mailer.SendBrief(ctx, email, *brief); err != nil {
			jobErr = multierr.Append(jobErr, err)
			continue
		}
		sent++
	}

	j.logg.Info(j.logg.WithField(ctx, "briefs_sent", sent), "advisor briefs processed")
	return jobErr
}

func (j *BriefJob) payloadFor(rec *models.PartRecord, now time.Time) ledger.NotificationPayload {
	return ledger.NotificationPayload{
		Advisor:      rec.ServiceAdvisor,
		ItemNo:       rec.ItemNo,
		Status:       rec.ItemStatus,
		Description:  rec.ItemDescription,
		DocumentNo:   rec.DocumentNo,
		CustomerName: rec.CustomerName,
		CustomerNo:   rec.CustomerNo,
		OrderNo:      rec.OrderNo,
		OrderedQty:   rec.OrderedQty,
		ETA:          rec.ETA,
		Duration:     j.ledger.Aging(rec, now),
	}
}

func (j *BriefJob) backOrderDays(rec *models.PartRecord, now time.Time) int {
	return aging.DaysOnBackOrder(rec.UpdatesLog, aging.Overrides{
		BackOrderDate: rec.BackOrderOriginalDate,
	}, now)
}
