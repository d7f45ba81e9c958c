package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// Service routes ledger change payloads into per-recipient in-app
// notifications and serves the unread list.
type Service interface {
	PublishUploadBatch(ctx context.Context, feed enums.FeedKind, payloads []ledger.NotificationPayload) error
	NotifyAdvisor(ctx context.Context, advisorCode, message string) error
	NotifyUser(ctx context.Context, userID uint, message string) error

	UnreadFor(ctx context.Context, recipient Recipient) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, recipient Recipient) error
}

type service struct {
	repo Repository
}

// NewService builds the notification service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

// PublishUploadBatch writes one advisor-targeted notification per payload.
// Payloads with no advisor fall back to the parts advisor user class so
// somebody always sees the change.
func (s *service) PublishUploadBatch(ctx context.Context, feed enums.FeedKind, payloads []ledger.NotificationPayload) error {
	if len(payloads) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(payloads))
	for _, p := range payloads {
		n := models.Notification{Message: renderMessage(feed, p)}
		if p.Advisor != "" {
			n.AdvisorCode = p.Advisor
		} else {
			n.UserType = string(enums.UserRolePartsAdv)
		}
		rows = append(rows, n)
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload notifications")
	}
	return nil
}

func (s *service) NotifyAdvisor(ctx context.Context, advisorCode, message string) error {
	if advisorCode == "" || message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "advisor code and message required")
	}
	err := s.repo.Create(ctx, &models.Notification{AdvisorCode: advisorCode, Message: message})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store advisor notification")
	}
	return nil
}

func (s *service) NotifyUser(ctx context.Context, userID uint, message string) error {
	if userID == 0 || message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and message required")
	}
	err := s.repo.Create(ctx, &models.Notification{UserID: &userID, Message: message})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store user notification")
	}
	return nil
}

func (s *service) UnreadFor(ctx context.Context, recipient Recipient) ([]models.Notification, error) {
	rows, err := s.repo.UnreadFor(ctx, recipient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, id uint) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("notification %d not found", id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipient Recipient) error {
	if err := s.repo.MarkAllRead(ctx, recipient); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return nil
}

func renderMessage(feed enums.FeedKind, p ledger.NotificationPayload) string {
	switch feed {
	case enums.FeedKindOnOrder:
		return fmt.Sprintf("%s ordered for %s, qty %d, ETA %s", p.ItemNo, p.CustomerName, p.OrderedQty, p.ETA)
	case enums.FeedKindBackOrder:
		if p.Duration != "" {
			return fmt.Sprintf("%s is on back order (%s) for %s, ETA %s", p.ItemNo, p.Duration, p.CustomerName, p.ETA)
		}
		return fmt.Sprintf("%s is on back order for %s, ETA %s", p.ItemNo, p.CustomerName, p.ETA)
	case enums.FeedKindInvoiced:
		return fmt.Sprintf("%s is %s for %s, qty %d, ETA %s", p.ItemNo, p.Status, p.CustomerName, p.InTransitQty, p.ETA)
	default:
		return fmt.Sprintf("%s updated to %s", p.ItemNo, p.Status)
	}
}
