package notifications

import (
	"context"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/pkg/db/models"
)

// Repository persists targeted in-app notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, ns []models.Notification) error
	UnreadFor(ctx context.Context, recipient Recipient) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, recipient Recipient) error
}

// Recipient identifies who is asking for notifications. A notification
// reaches a recipient through any of its targeting channels or by being
// global.
type Recipient struct {
	UserID      uint
	AdvisorCode string
	UserType    string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *repository) CreateBatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

func (r *repository) UnreadFor(ctx context.Context, recipient Recipient) ([]models.Notification, error) {
	var rows []models.Notification
	err := recipientQuery(r.db.WithContext(ctx), recipient).
		Where("is_read = ?", false).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, recipient Recipient) error {
	return recipientQuery(r.db.WithContext(ctx).Model(&models.Notification{}), recipient).
		Where("is_read = ?", false).
		Update("is_read", true).Error
}

func recipientQuery(q *gorm.DB, recipient Recipient) *gorm.DB {
	return q.Where(
		`(user_id IS NULL AND advisor_code = '' AND user_type = '')
		OR user_id = ?
		OR (advisor_code <> '' AND advisor_code = ?)
		OR (user_type <> '' AND user_type = ?)`,
		recipient.UserID, recipient.AdvisorCode, recipient.UserType,
	)
}
