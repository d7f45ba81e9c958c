package remarks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// advisorNotifier lets an admin remark ping the advisor who owns the part.
type advisorNotifier interface {
	NotifyAdvisor(ctx context.Context, advisorCode, message string) error
}

// AddInput is one new remark.
type AddInput struct {
	PartID         uint   `json:"part_id" validate:"required"`
	RemarkText     string `json:"remark_text" validate:"required"`
	FollowUpDate   string `json:"follow_up_date"`
	RememberOnDate string `json:"remember_on_date"`
	EnteredBy      string `json:"-"`
	AuthorRoles    enums.RoleSet
}

// Service manages part remarks and their read receipts.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.Remark, error)
	ListForPart(ctx context.Context, partID uint) ([]models.Remark, error)
	TodayReminders(ctx context.Context, enteredBy string) ([]models.Remark, error)
	MarkRead(ctx context.Context, id uint) error
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	tx       txRunner
	notifier advisorNotifier
	now      func() time.Time
}

// NewService builds the remarks service.
func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner, notifier advisorNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("remarks repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("advisor notifier required")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

// Add stores the remark, mirrors it into the part's audit log, and, when
// the author is an administrator, notifies the advisor who owns the part.
func (s *service) Add(ctx context.Context, input AddInput) (*models.Remark, error) {
	if input.RemarkText == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remark text required")
	}

	part, err := s.ledger.Get(ctx, input.PartID)
	if err != nil {
		return nil, err
	}

	remark := &models.Remark{
		PartID:     input.PartID,
		RemarkText: input.RemarkText,
		EnteredBy:  input.EnteredBy,
	}
	if remark.FollowUpDate, err = optionalDate(input.FollowUpDate, "follow up date"); err != nil {
		return nil, err
	}
	if remark.RememberOnDate, err = optionalDate(input.RememberOnDate, "remember on date"); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, remark)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store remark")
	}

	action := fmt.Sprintf("Remark: %s", input.RemarkText)
	if err := s.ledger.AddLogEntry(ctx, input.PartID, input.EnteredBy, action); err != nil {
		return nil, err
	}

	if input.AuthorRoles.HasAny(enums.UserRoleAdmin, enums.UserRoleSuperAdmin) && part.ServiceAdvisor != "" {
		message := fmt.Sprintf("New remark on %s for %s: %s", part.ItemNo, part.CustomerName, input.RemarkText)
		if err := s.notifier.NotifyAdvisor(ctx, part.ServiceAdvisor, message); err != nil {
			return nil, err
		}
	}

	return remark, nil
}

func (s *service) ListForPart(ctx context.Context, partID uint) ([]models.Remark, error) {
	if _, err := s.ledger.Get(ctx, partID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForPart(ctx, partID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list remarks")
	}
	return rows, nil
}

// TodayReminders returns the author's remarks due today.
func (s *service) TodayReminders(ctx context.Context, enteredBy string) ([]models.Remark, error) {
	if enteredBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author required")
	}
	rows, err := s.repo.DueOn(ctx, enteredBy, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due remarks")
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, id uint) error {
	if err := s.repo.MarkRead(ctx, id, s.now()); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("remark %d not found or already read", id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark remark read")
	}
	return nil
}

func optionalDate(raw, label string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s %q", label, raw))
	}
	return &d, nil
}
