package remarks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/pkg/db/models"
)

// Repository persists part remarks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, remark *models.Remark) error
	Get(ctx context.Context, id uint) (*models.Remark, error)
	ListForPart(ctx context.Context, partID uint) ([]models.Remark, error)
	DueOn(ctx context.Context, enteredBy string, day time.Time) ([]models.Remark, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
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

func (r *repository) Create(ctx context.Context, remark *models.Remark) error {
	return r.db.WithContext(ctx).Create(remark).Error
}

func (r *repository) Get(ctx context.Context, id uint) (*models.Remark, error) {
	var remark models.Remark
	if err := r.db.WithContext(ctx).First(&remark, id).Error; err != nil {
		return nil, err
	}
	return &remark, nil
}

func (r *repository) ListForPart(ctx context.Context, partID uint) ([]models.Remark, error) {
	var rows []models.Remark
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DueOn returns the author's remarks whose follow-up or remember-on date
// falls on the given day. Dates are stored as UTC midnights, so the window
// is computed in UTC.
func (r *repository) DueOn(ctx context.Context, enteredBy string, day time.Time) ([]models.Remark, error) {
	day = day.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []models.Remark
	err := r.db.WithContext(ctx).
		Where("entered_by = ?", enteredBy).
		Where(`(follow_up_date >= ? AND follow_up_date < ?)
			OR (remember_on_date >= ? AND remember_on_date < ?)`,
			dayStart, dayEnd, dayStart, dayEnd).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Remark{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
