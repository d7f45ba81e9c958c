package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/internal/aging"
	"github.com/dealerops/partstrail-backend/internal/normalize"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies feed uploads and manual actions to the parts ledger.
// Every mutation appends to the record's audit log; notification payloads
// describing what changed are returned to the caller rather than delivered
// here.
type Service interface {
	ApplyUpload(ctx context.Context, feed enums.FeedKind, rows []UploadRow, actor string) BatchResult
	FindCandidates(ctx context.Context, row UploadRow, feed enums.FeedKind) ([]models.PartRecord, error)

	Receive(ctx context.Context, actor string, inputs []ReceiveInput) ([]NotificationPayload, error)
	Archive(ctx context.Context, id uint, actor string) error
	Restore(ctx context.Context, id uint, actor string) error
	ArchiveByDocument(ctx context.Context, documentNo, actor string) (int, error)

	UpdateShipmentETA(ctx context.Context, shipmentRef, eta, actor string) (int, error)
	RemoveFromShipment(ctx context.Context, id uint, actor string) error
	SetDates(ctx context.Context, id uint, input DatesInput, actor string) error
	AddLogEntry(ctx context.Context, id uint, actor, action string) error

	Get(ctx context.Context, id uint) (*models.PartRecord, error)
	ListActive(ctx context.Context, scope ViewScope) ([]models.PartRecord, error)
	ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error)
	Search(ctx context.Context, query string, scope ViewScope) ([]models.PartRecord, error)
	ShipmentSummaries(ctx context.Context) ([]ShipmentSummary, error)
	ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error)
	Dashboard(ctx context.Context) (*DashboardMetrics, []TopPart, error)

	Aging(rec *models.PartRecord, now time.Time) string
}

// DatesInput updates the manual override dates on a record. Nil fields are
// left untouched; empty strings clear the date.
type DatesInput struct {
	ETA             *string `json:"eta"`
	CustomStockDate *string `json:"custom_stock_date"`
	BackOrderDate   *string `json:"back_order_date"`
	ReceivedDate    *string `json:"received_date"`
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		logg: logg,
		now:  time.Now,
	}, nil
}

// ApplyUpload runs every parsed row through the matcher and the feed's
// transition rules. Each row commits in its own transaction; a failed row
// is collected into the result and never aborts its siblings.
func (s *service) ApplyUpload(ctx context.Context, feed enums.FeedKind, rows []UploadRow, actor string) BatchResult {
	var result BatchResult
	ctx = s.logg.WithFeed(ctx, string(feed))

	for _, row := range rows {
		result.Processed++

		if normalize.Item(row.ItemNo) == "" {
			result.Skipped++
			s.logg.Warn(s.logg.WithActor(ctx, actor), "upload row skipped: empty item number")
			continue
		}

		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.applyRow(ctx, s.repo.WithTx(tx), feed, row, actor, &result)
		})
		if err != nil {
			result.Err = multierr.Append(result.Err,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("apply row item %s", row.ItemNo)))
			s.logg.Error(ctx, "upload row failed", err)
		}
	}
	return result
}

func (s *service) applyRow(ctx context.Context, repo Repository, feed enums.FeedKind, row UploadRow, actor string, result *BatchResult) error {
	switch feed {
	case enums.FeedKindOnOrder:
		return s.applyOnOrder(ctx, repo, row, actor, result)
	case enums.FeedKindBackOrder:
		return s.applyBackOrder(ctx, repo, row, actor, result)
	case enums.FeedKindInvoiced:
		return s.applyInvoiced(ctx, repo, row, actor, result)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown feed kind %q", feed))
	}
}

// applyOnOrder always inserts. The On Order feed is the only source of new
// ledger rows.
func (s *service) applyOnOrder(ctx context.Context, repo Repository, row UploadRow, actor string, result *BatchResult) error {
	now := s.now()
	rec := &models.PartRecord{
		ItemNo:          row.ItemNo,
		ItemDescription: row.ItemDescription,
		CustomerNo:      row.CustomerNo,
		CustomerName:    row.CustomerName,
		VIN:             row.VIN,
		DocumentNo:      row.DocumentNo,
		OrderNo:         row.OrderNo,
		ServiceAdvisor:  row.ServiceAdvisor,
		ItemStatus:      enums.ItemStatusOnOrder,
		ETA:             row.ETA,
		OrderedQty:      row.OrderedQty,
		Cardown:         row.Cardown,
		SourceFileType:  enums.FeedKindOnOrder,
		UpdatesLog:      aging.Append("", now, actor, "Uploaded"),
	}
	if rec.Cardown == "" {
		rec.Cardown = "No"
	}

	if err := repo.Create(ctx, rec); err != nil {
		return err
	}

	result.Created++
	result.Notifications = append(result.Notifications, payloadFor(rec, ""))
	return nil
}

// applyBackOrder moves every matched row to Back Order. The back-order
// start date comes from the feed when it carries one, so the log entry is
// stamped with that date rather than the upload time. Rows with no match
// are left alone; back orders never open new reservations on their own.
func (s *service) applyBackOrder(ctx context.Context, repo Repository, row UploadRow, actor string, result *BatchResult) error {
	matches, err := s.matchWithin(ctx, repo, row, enums.FeedKindBackOrder)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		result.Skipped++
		return nil
	}

	now := s.now()
	start := now
	startOverride, hasStart := aging.ParseOverrideDate(row.BackOrderDate)
	if hasStart {
		start = startOverride
	}

	for i := range matches {
		rec := &matches[i]

		duration := "B.O. 0 days"
		if rec.ItemStatus == enums.ItemStatusBackOrder {
			duration = s.Aging(rec, now)
		}

		rec.ItemStatus = enums.ItemStatusBackOrder
		if row.ETA != "" {
			rec.ETA = row.ETA
		}
		if row.NextInfo != "" {
			rec.NextInfo = row.NextInfo
		}
		if row.Cardown != "" {
			rec.Cardown = row.Cardown
		}
		if hasStart && rec.BackOrderOriginalDate == nil {
			d := startOverride
			rec.BackOrderOriginalDate = &d
		}
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, start, actor,
			fmt.Sprintf("Back ordered, ETA %s", displayETA(rec.ETA)))

		if err := repo.Save(ctx, rec); err != nil {
			return err
		}
		result.Updated++
		result.Notifications = append(result.Notifications, payloadFor(rec, duration))
	}
	return nil
}

// applyInvoiced marks matched rows as shipped. A row already partially
// received becomes Reordered, which flags a second shipment wave for the
// same reservation. Invoiced rows with no ledger counterpart are dropped.
func (s *service) applyInvoiced(ctx context.Context, repo Repository, row UploadRow, actor string, result *BatchResult) error {
	matches, err := s.matchWithin(ctx, repo, row, enums.FeedKindInvoiced)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		result.Skipped++
		return nil
	}

	now := s.now()
	for i := range matches {
		rec := &matches[i]

		next := enums.ItemStatusInTransit
		if rec.ItemStatus == enums.ItemStatusPartiallyReceived {
			next = enums.ItemStatusReordered
		}

		rec.ItemStatus = next
		rec.InTransitQty = row.InTransitQty
		rec.ShipmentRef = row.ShipmentRef
		if row.ETA != "" {
			rec.ETA = row.ETA
		}
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, now, actor,
			fmt.Sprintf("%s on shipment %s, qty %d", next, row.ShipmentRef, row.InTransitQty))

		if err := repo.Save(ctx, rec); err != nil {
			return err
		}
		result.Updated++
		result.Notifications = append(result.Notifications, payloadFor(rec, ""))
	}
	return nil
}

// matchWithin runs the matcher against the transaction-bound repository.
func (s *service) matchWithin(ctx context.Context, repo Repository, row UploadRow, feed enums.FeedKind) ([]models.PartRecord, error) {
	key := normalize.FoldItem(row.ItemNo)
	if key == "" {
		return nil, nil
	}
	candidates, err := repo.FindActiveByItemKey(ctx, key)
	if err != nil {
		return nil, err
	}
	matched := make([]models.PartRecord, 0, len(candidates))
	for _, cand := range candidates {
		if isMatch(row, cand, feed) {
			matched = append(matched, cand)
		}
	}
	return matched, nil
}

// Receive records arrived quantity against in-shipment rows. Quantities
// accumulate across partial deliveries; a row flips to Received only once
// the running total covers the ordered quantity. Each booked row yields a
// notification payload so the caller can tell the advisor the part is in.
func (s *service) Receive(ctx context.Context, actor string, inputs []ReceiveInput) ([]NotificationPayload, error) {
	var batchErr error
	payloads := make([]NotificationPayload, 0, len(inputs))
	for _, input := range inputs {
		if input.Qty <= 0 {
			batchErr = multierr.Append(batchErr,
				pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("part %d: receive quantity must be positive", input.PartID)))
			continue
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			payload, err := s.receiveOne(ctx, s.repo.WithTx(tx), input, actor)
			if err != nil {
				return err
			}
			payloads = append(payloads, payload)
			return nil
		})
		if err != nil {
			batchErr = multierr.Append(batchErr, err)
		}
	}
	return payloads, batchErr
}

func (s *service) receiveOne(ctx context.Context, repo Repository, input ReceiveInput, actor string) (NotificationPayload, error) {
	rec, err := repo.Get(ctx, input.PartID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return NotificationPayload{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %d not found", input.PartID))
		}
		return NotificationPayload{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	if !rec.ItemStatus.InShipment() && !rec.ItemStatus.IsReceived() {
		return NotificationPayload{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("part %d is %s, nothing to receive", rec.ID, rec.ItemStatus))
	}

	now := s.now()
	rec.ReceivedQty += input.Qty
	if rec.ReceivedQty >= rec.OrderedQty {
		rec.ItemStatus = enums.ItemStatusReceived
		if rec.ReceivedDate == nil {
			d := now
			rec.ReceivedDate = &d
		}
	} else {
		rec.ItemStatus = enums.ItemStatusPartiallyReceived
	}
	rec.UpdatesLog = aging.Append(rec.UpdatesLog, now, actor,
		fmt.Sprintf("Received %d, total %d of %d", input.Qty, rec.ReceivedQty, rec.OrderedQty))

	if err := repo.Save(ctx, rec); err != nil {
		return NotificationPayload{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save receipt")
	}
	return payloadFor(rec, s.Aging(rec, now)), nil
}

// Archive posts a record out of the active views. The status is left
// untouched so a later restore brings the record back exactly as it was.
func (s *service) Archive(ctx context.Context, id uint, actor string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.mustGet(ctx, repo, id)
		if err != nil {
			return err
		}
		if rec.IsArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "part already archived")
		}

		now := s.now()
		rec.IsArchived = true
		rec.PostedBy = actor
		rec.PostedAt = &now
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, now, actor, "Posted and archived")
		return repo.Save(ctx, rec)
	})
}

// Restore returns an archived record to the active ledger.
func (s *service) Restore(ctx context.Context, id uint, actor string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.mustGet(ctx, repo, id)
		if err != nil {
			return err
		}
		if !rec.IsArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "part is not archived")
		}

		rec.IsArchived = false
		rec.PostedBy = ""
		rec.PostedAt = nil
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, s.now(), actor, "Restored from archive")
		return repo.Save(ctx, rec)
	})
}

// ArchiveByDocument posts every active row of one document in a single
// transaction and returns the number of rows posted.
func (s *service) ArchiveByDocument(ctx context.Context, documentNo, actor string) (int, error) {
	if documentNo == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "document number required")
	}

	var posted int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.ActiveByDocumentNo(ctx, documentNo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document rows")
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no active parts on document %s", documentNo))
		}

		now := s.now()
		for i := range rows {
			rec := &rows[i]
			rec.IsArchived = true
			rec.ItemStatus = enums.ItemStatusPosted
			rec.PostedBy = actor
			rec.PostedAt = &now
			rec.UpdatesLog = aging.Append(rec.UpdatesLog, now, actor,
				fmt.Sprintf("Posted with document %s", documentNo))
			if err := repo.Save(ctx, rec); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "post document row")
			}
		}
		posted = len(rows)
		return nil
	})
	return posted, err
}

// UpdateShipmentETA rewrites the ETA on every in-shipment row of one
// shipment and returns how many rows changed.
func (s *service) UpdateShipmentETA(ctx context.Context, shipmentRef, eta, actor string) (int, error) {
	if shipmentRef == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "shipment reference required")
	}

	var changed int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.ShipmentItems(ctx, shipmentRef)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment rows")
		}
		if len(rows) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no open items on shipment %s", shipmentRef))
		}

		now := s.now()
		for i := range rows {
			rec := &rows[i]
			rec.ETA = eta
			rec.UpdatesLog = aging.Append(rec.UpdatesLog, now, actor,
				fmt.Sprintf("Shipment ETA updated to %s", displayETA(eta)))
			if err := repo.Save(ctx, rec); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shipment row")
			}
		}
		changed = len(rows)
		return nil
	})
	return changed, err
}

// RemoveFromShipment takes one row out of its shipment. A row that only
// exists because of an invoice upload and has received nothing yet is
// rolled back entirely; anything else reverts to its pre-shipment status.
func (s *service) RemoveFromShipment(ctx context.Context, id uint, actor string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.mustGet(ctx, repo, id)
		if err != nil {
			return err
		}
		if !rec.ItemStatus.InShipment() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "part is not in a shipment")
		}

		if rec.SourceFileType == enums.FeedKindInvoiced && rec.ReceivedQty == 0 {
			return repo.Delete(ctx, rec.ID)
		}

		ref := rec.ShipmentRef
		if rec.ReceivedQty > 0 {
			rec.ItemStatus = enums.ItemStatusPartiallyReceived
		} else if rec.BackOrderOriginalDate != nil || rec.NextInfo != "" {
			rec.ItemStatus = enums.ItemStatusBackOrder
		} else {
			rec.ItemStatus = enums.ItemStatusOnOrder
		}
		rec.ShipmentRef = ""
		rec.InTransitQty = 0
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, s.now(), actor,
			fmt.Sprintf("Removed from shipment %s", ref))
		return repo.Save(ctx, rec)
	})
}

// SetDates applies manual override dates and an ETA edit in one shot.
func (s *service) SetDates(ctx context.Context, id uint, input DatesInput, actor string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.mustGet(ctx, repo, id)
		if err != nil {
			return err
		}

		changed := false
		if input.ETA != nil {
			rec.ETA = *input.ETA
			changed = true
		}
		if input.CustomStockDate != nil {
			if err := setOverride(&rec.CustomStockDate, *input.CustomStockDate, "custom stock date"); err != nil {
				return err
			}
			changed = true
		}
		if input.BackOrderDate != nil {
			if err := setOverride(&rec.BackOrderOriginalDate, *input.BackOrderDate, "back order date"); err != nil {
				return err
			}
			changed = true
		}
		if input.ReceivedDate != nil {
			if err := setOverride(&rec.ReceivedDate, *input.ReceivedDate, "received date"); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
		}

		rec.UpdatesLog = aging.Append(rec.UpdatesLog, s.now(), actor, "Dates updated")
		return repo.Save(ctx, rec)
	})
}

func setOverride(field **time.Time, raw, label string) error {
	if raw == "" {
		*field = nil
		return nil
	}
	d, ok := aging.ParseOverrideDate(raw)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s %q", label, raw))
	}
	*field = &d
	return nil
}

// AddLogEntry appends a free-text audit entry to a record's log.
func (s *service) AddLogEntry(ctx context.Context, id uint, actor, action string) error {
	if action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "log entry text required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.mustGet(ctx, repo, id)
		if err != nil {
			return err
		}
		rec.UpdatesLog = aging.Append(rec.UpdatesLog, s.now(), actor, action)
		return repo.Save(ctx, rec)
	})
}

func (s *service) Get(ctx context.Context, id uint) (*models.PartRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %d not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return rec, nil
}

func (s *service) ListActive(ctx context.Context, scope ViewScope) ([]models.PartRecord, error) {
	return s.repo.ListActive(ctx, scope)
}

func (s *service) ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error) {
	return s.repo.ListArchived(ctx, p)
}

func (s *service) Search(ctx context.Context, query string, scope ViewScope) ([]models.PartRecord, error) {
	if query == "" {
		return s.repo.ListActive(ctx, scope)
	}
	return s.repo.Search(ctx, query, scope)
}

func (s *service) ShipmentSummaries(ctx context.Context) ([]ShipmentSummary, error) {
	return s.repo.ShipmentSummaries(ctx)
}

func (s *service) ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error) {
	if shipmentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment reference required")
	}
	return s.repo.ShipmentItems(ctx, shipmentRef)
}

func (s *service) Dashboard(ctx context.Context) (*DashboardMetrics, []TopPart, error) {
	metrics, err := s.repo.Metrics(ctx)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dashboard metrics")
	}
	top, err := s.repo.TopOrderedParts(ctx, 10)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top ordered parts")
	}
	return metrics, top, nil
}

// Aging derives the duration string for one record from its log and
// override dates.
func (s *service) Aging(rec *models.PartRecord, now time.Time) string {
	return aging.Compute(rec.UpdatesLog, rec.ItemStatus, aging.Overrides{
		CustomStockDate: rec.CustomStockDate,
		BackOrderDate:   rec.BackOrderOriginalDate,
		ReceivedDate:    rec.ReceivedDate,
	}, now)
}

func (s *service) mustGet(ctx context.Context, repo Repository, id uint) (*models.PartRecord, error) {
	rec, err := repo.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %d not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return rec, nil
}

func payloadFor(rec *models.PartRecord, duration string) NotificationPayload {
	return NotificationPayload{
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
		Cardown:      rec.Cardown,
		InTransitQty: rec.InTransitQty,
		Duration:     duration,
	}
}

func displayETA(eta string) string {
	if eta == "" {
		return "unknown"
	}
	return eta
}
