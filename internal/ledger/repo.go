package ledger

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/internal/normalize"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

// advisorGroup is the grouped view the EMB role sees.
var advisorGroup = []string{"EMA GilbetZ", "EMB TonyR", "EMC JackS"}

// Repository is the ledger's persistence contract. Active queries always
// exclude archived rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, rec *models.PartRecord) error
	Get(ctx context.Context, id uint) (*models.PartRecord, error)
	Save(ctx context.Context, rec *models.PartRecord) error
	Delete(ctx context.Context, id uint) error

	FindActiveByItemKey(ctx context.Context, itemKey string) ([]models.PartRecord, error)
	ListActive(ctx context.Context, scope ViewScope) ([]models.PartRecord, error)
	ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error)
	Search(ctx context.Context, query string, scope ViewScope) ([]models.PartRecord, error)

	PendingShipmentRefs(ctx context.Context) ([]string, error)
	ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error)
	ShipmentSummaries(ctx context.Context) ([]ShipmentSummary, error)

	ActiveByDocumentNo(ctx context.Context, documentNo string) ([]models.PartRecord, error)
	StaleReceived(ctx context.Context, reminderCutoff time.Time) ([]models.PartRecord, error)
	StampReminder(ctx context.Context, ids []uint, at time.Time) error

	Metrics(ctx context.Context) (*DashboardMetrics, error)
	TopOrderedParts(ctx context.Context, limit int) ([]TopPart, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rec *models.PartRecord) error {
	rec.ItemKey = normalize.FoldItem(rec.ItemNo)
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) Get(ctx context.Context, id uint) (*models.PartRecord, error) {
	var rec models.PartRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) Save(ctx context.Context, rec *models.PartRecord) error {
	rec.ItemKey = normalize.FoldItem(rec.ItemNo)
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PartRecord{}, id).Error
}

func (r *repository) FindActiveByItemKey(ctx context.Context, itemKey string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	err := r.db.WithContext(ctx).
		Where("item_key = ? AND is_archived = ?", itemKey, false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context, scope ViewScope) ([]models.PartRecord, error) {
	q := r.db.WithContext(ctx).
		Where("is_archived = ?", false).
		// Back orders surface only once linked to a customer.
		Where("item_status <> ? OR (customer_name IS NOT NULL AND customer_name <> '')", enums.ItemStatusBackOrder)

	q = applyScope(q, scope)

	var rows []models.PartRecord
	if err := q.Order("last_updated DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error) {
	limit := pagination.NormalizeLimit(p.Limit)
	q := r.db.WithContext(ctx).Where("is_archived = ?", true)

	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		q = q.Where("last_updated < ? OR (last_updated = ? AND id < ?)",
			cursor.LastUpdated, cursor.LastUpdated, cursor.ID)
	}

	var rows []models.PartRecord
	err = q.Order("last_updated DESC, id DESC").
		Limit(pagination.LimitWithBuffer(p.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{LastUpdated: last.LastUpdated, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) Search(ctx context.Context, query string, scope ViewScope) ([]models.PartRecord, error) {
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Where("item_no LIKE ? OR order_no LIKE ? OR customer_name LIKE ?", pattern, pattern, pattern)

	q = applyScope(q, scope)

	var rows []models.PartRecord
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// applyScope mirrors the role matrix: admins and accounting see everything,
// general and parts-advisor roles see all but over-the-counter, the group
// lead sees its advisor group, OTC sees only its own counter, and everyone
// else is restricted to their own advisor code.
func applyScope(q *gorm.DB, scope ViewScope) *gorm.DB {
	switch {
	case scope.Roles.HasAny(enums.UserRoleAdmin, enums.UserRoleSuperAdmin, enums.UserRoleAccounting):
		return q
	case scope.Roles.HasAny(enums.UserRoleGeneral, enums.UserRolePartsAdv):
		return q.Where("service_advisor <> ?", "OTC")
	case scope.Roles.Has(enums.UserRoleGroupLead):
		return q.Where("service_advisor IN ?", advisorGroup)
	case scope.Roles.Has(enums.UserRoleCounter):
		return q.Where("service_advisor = ?", "OTC")
	default:
		return q.Where("service_advisor = ?", scope.AdvisorCode)
	}
}

func (r *repository) PendingShipmentRefs(ctx context.Context) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&models.PartRecord{}).
		Distinct("shipment_ref").
		Where("item_status IN ? AND shipment_ref <> ''", []enums.ItemStatus{enums.ItemStatusInTransit, enums.ItemStatusReordered}).
		Pluck("shipment_ref", &refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *repository) ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	err := r.db.WithContext(ctx).
		Where("shipment_ref = ? AND item_status IN ?", shipmentRef, []enums.ItemStatus{enums.ItemStatusInTransit, enums.ItemStatusReordered}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ShipmentSummaries(ctx context.Context) ([]ShipmentSummary, error) {
	var rows []ShipmentSummary
	err := r.db.WithContext(ctx).
		Model(&models.PartRecord{}).
		Select(`shipment_ref,
			MIN(eta) AS current_eta,
			MAX(last_updated) AS last_update,
			COUNT(*) AS total_items,
			SUM(CASE WHEN item_status IN ('In Transit', 'Reordered') THEN 1 ELSE 0 END) AS in_transit_count,
			SUM(CASE WHEN item_status = 'Received' THEN 1 ELSE 0 END) AS received_count`).
		Where("shipment_ref <> ''").
		Group("shipment_ref").
		Order("last_update DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].InTransitCount > 0 {
			rows[i].Status = string(enums.ItemStatusInTransit)
		} else {
			rows[i].Status = string(enums.ItemStatusReceived)
		}
	}
	return rows, nil
}

func (r *repository) ActiveByDocumentNo(ctx context.Context, documentNo string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	err := r.db.WithContext(ctx).
		Where("document_no = ? AND is_archived = ?", documentNo, false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StaleReceived lists active fully received rows whose last reminder is
// older than the cutoff (or never sent). Aging is computed by the caller.
func (r *repository) StaleReceived(ctx context.Context, reminderCutoff time.Time) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	err := r.db.WithContext(ctx).
		Where("item_status = ? AND is_archived = ?", enums.ItemStatusReceived, false).
		Where("last_reminder_sent IS NULL OR last_reminder_sent < ?", reminderCutoff).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) StampReminder(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PartRecord{}).
		Where("id IN ?", ids).
		Update("last_reminder_sent", at).Error
}

func (r *repository) Metrics(ctx context.Context) (*DashboardMetrics, error) {
	var m DashboardMetrics
	base := r.db.WithContext(ctx).Model(&models.PartRecord{}).Where("is_archived = ?", false)

	if err := base.Session(&gorm.Session{}).Count(&m.ActiveOrders).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("cardown LIKE ?", "Yes%").Count(&m.CarDown).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("item_status = ?", enums.ItemStatusReceived).Count(&m.ReceivedCount).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) TopOrderedParts(ctx context.Context, limit int) ([]TopPart, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []TopPart
	err := r.db.WithContext(ctx).
		Model(&models.PartRecord{}).
		Select("item_no, MAX(item_description) AS item_description, COUNT(*) AS frequency, SUM(ordered_qty) AS total_qty").
		Group("item_no").
		Order("frequency DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
