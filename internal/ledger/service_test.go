package ledger

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/internal/normalize"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

type stubLedgerRepo struct {
	records map[uint]*models.PartRecord
	nextID  uint

	createErr error
	saveErr   error
}

func newStubLedgerRepo() *stubLedgerRepo {
	return &stubLedgerRepo{records: make(map[uint]*models.PartRecord), nextID: 1}
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLedgerRepo) Create(ctx context.Context, rec *models.PartRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	rec.ID = s.nextID
	s.nextID++
	rec.ItemKey = normalize.FoldItem(rec.ItemNo)
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *stubLedgerRepo) Get(ctx context.Context, id uint) (*models.PartRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *stubLedgerRepo) Save(ctx context.Context, rec *models.PartRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	rec.ItemKey = normalize.FoldItem(rec.ItemNo)
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *stubLedgerRepo) Delete(ctx context.Context, id uint) error {
	delete(s.records, id)
	return nil
}

func (s *stubLedgerRepo) FindActiveByItemKey(ctx context.Context, itemKey string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	for _, rec := range s.records {
		if !rec.IsArchived && rec.ItemKey == itemKey {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (s *stubLedgerRepo) ListActive(ctx context.Context, scope ViewScope) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	for _, rec := range s.records {
		if !rec.IsArchived {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (s *stubLedgerRepo) ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error) {
	var rows []models.PartRecord
	for _, rec := range s.records {
		if rec.IsArchived {
			rows = append(rows, *rec)
		}
	}
	return rows, "", nil
}

func (s *stubLedgerRepo) Search(ctx context.Context, query string, scope ViewScope) ([]models.PartRecord, error) {
	return nil, nil
}

func (s *stubLedgerRepo) PendingShipmentRefs(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubLedgerRepo) ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	for _, rec := range s.records {
		if rec.ShipmentRef == shipmentRef && rec.ItemStatus.InShipment() {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (s *stubLedgerRepo) ShipmentSummaries(ctx context.Context) ([]ShipmentSummary, error) {
	return nil, nil
}

func (s *stubLedgerRepo) ActiveByDocumentNo(ctx context.Context, documentNo string) ([]models.PartRecord, error) {
	var rows []models.PartRecord
	for _, rec := range s.records {
		if !rec.IsArchived && rec.DocumentNo == documentNo {
			rows = append(rows, *rec)
		}
	}
	return rows, nil
}

func (s *stubLedgerRepo) StaleReceived(ctx context.Context, cutoff time.Time) ([]models.PartRecord, error) {
	return nil, nil
}

func (s *stubLedgerRepo) StampReminder(ctx context.Context, ids []uint, at time.Time) error {
	return nil
}

func (s *stubLedgerRepo) Metrics(ctx context.Context) (*DashboardMetrics, error) {
	return &DashboardMetrics{}, nil
}

func (s *stubLedgerRepo) TopOrderedParts(ctx context.Context, limit int) ([]TopPart, error) {
	return nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, logg)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func seedRecord(repo *stubLedgerRepo, rec models.PartRecord) *models.PartRecord {
	_ = repo.Create(context.Background(), &rec)
	return repo.records[rec.ID]
}

func TestApplyUploadOnOrderCreates(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	result := svc.ApplyUpload(context.Background(), enums.FeedKindOnOrder, []UploadRow{{
		ItemNo:         "ABC-123",
		CustomerName:   "Jordan Miles",
		OrderNo:        "26PAG44",
		ServiceAdvisor: "EMB TonyR",
		OrderedQty:     2,
		ETA:            "2026-09-15",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Created != 1 || result.Processed != 1 {
		t.Fatalf("expected one created row, got %+v", result)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(repo.records))
	}

	rec := repo.records[1]
	if rec.ItemStatus != enums.ItemStatusOnOrder {
		t.Fatalf("expected On Order status, got %s", rec.ItemStatus)
	}
	if rec.OrderedQty != 2 || rec.ETA != "2026-09-15" {
		t.Fatalf("quantity or eta not taken from input: %+v", rec)
	}
	if !strings.Contains(rec.UpdatesLog, "Uploaded") {
		t.Fatalf("expected Uploaded log entry, got %q", rec.UpdatesLog)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Advisor != "EMB TonyR" {
		t.Fatalf("expected advisor notification, got %+v", result.Notifications)
	}
}

func TestApplyUploadSkipsEmptyItemNo(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	result := svc.ApplyUpload(context.Background(), enums.FeedKindOnOrder, []UploadRow{
		{ItemNo: "   "},
		{ItemNo: "GOOD1", OrderedQty: 1},
	}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Skipped != 1 || result.Created != 1 {
		t.Fatalf("expected one skip and one create, got %+v", result)
	}
}

func TestApplyUploadBackOrderTransition(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:       "ABC0001",
		OrderNo:      "26PAG0002",
		CustomerName: "Jordan Miles",
		ItemStatus:   enums.ItemStatusOnOrder,
		OrderedQty:   1,
	})
	entriesBefore := strings.Count(seeded.UpdatesLog, "[")

	result := svc.ApplyUpload(context.Background(), enums.FeedKindBackOrder, []UploadRow{{
		ItemNo:   "ABC1",
		OrderNo:  "Purchase Order 26PAG2",
		ETA:      "2026-10-01",
		NextInfo: "awaiting supplier",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected one update, got %+v", result)
	}

	rec := repo.records[seeded.ID]
	if rec.ItemStatus != enums.ItemStatusBackOrder {
		t.Fatalf("expected Back Order status, got %s", rec.ItemStatus)
	}
	if rec.ETA != "2026-10-01" || rec.NextInfo != "awaiting supplier" {
		t.Fatalf("eta or next info not applied: %+v", rec)
	}
	if got := strings.Count(rec.UpdatesLog, "["); got != entriesBefore+1 {
		t.Fatalf("expected exactly one new log entry, had %d now %d", entriesBefore, got)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Duration != "B.O. 0 days" {
		t.Fatalf("fresh back order should report zero aging, got %+v", result.Notifications)
	}
}

func TestApplyUploadBackOrderPriorAging(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	start := time.Now().AddDate(0, 0, -10)
	seedRecord(repo, models.PartRecord{
		ItemNo:                "DEF5",
		OrderNo:               "26PAG7",
		ItemStatus:            enums.ItemStatusBackOrder,
		BackOrderOriginalDate: &start,
	})

	result := svc.ApplyUpload(context.Background(), enums.FeedKindBackOrder, []UploadRow{{
		ItemNo:  "DEF5",
		OrderNo: "26PAG7",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Duration != "B.O. 10 days" {
		t.Fatalf("expected prior aging in payload, got %+v", result.Notifications)
	}
}

func TestApplyUploadBackOrderDigitRunFallback(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:     "GHI9",
		OrderNo:    "26PAG052",
		ItemStatus: enums.ItemStatusOnOrder,
	})

	result := svc.ApplyUpload(context.Background(), enums.FeedKindBackOrder, []UploadRow{{
		ItemNo:  "GHI9",
		OrderNo: "04 52",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Updated != 1 {
		t.Fatalf("digit run fallback should have matched, got %+v", result)
	}
	if repo.records[seeded.ID].ItemStatus != enums.ItemStatusBackOrder {
		t.Fatalf("expected Back Order status after match")
	}
}

func TestApplyUploadBackOrderNoMatchCreatesNothing(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	result := svc.ApplyUpload(context.Background(), enums.FeedKindBackOrder, []UploadRow{{
		ItemNo:  "UNSEEN1",
		OrderNo: "26PAG99",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Skipped != 1 || len(repo.records) != 0 {
		t.Fatalf("back order without match must not create rows, got %+v", result)
	}
}

func TestApplyUploadInvoicedTransitions(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	onOrder := seedRecord(repo, models.PartRecord{
		ItemNo:       "JKL3",
		OrderNo:      "26PAG11",
		CustomerName: "Casey Fox",
		ItemStatus:   enums.ItemStatusOnOrder,
		OrderedQty:   4,
	})
	partial := seedRecord(repo, models.PartRecord{
		ItemNo:       "JKL3",
		OrderNo:      "26PAG12",
		CustomerName: "Robin Vale",
		ItemStatus:   enums.ItemStatusPartiallyReceived,
		OrderedQty:   4,
		ReceivedQty:  1,
	})

	result := svc.ApplyUpload(context.Background(), enums.FeedKindInvoiced, []UploadRow{
		{ItemNo: "JKL3", CustomerName: "casey fox", InTransitQty: 4, ShipmentRef: "SHP-900"},
		{ItemNo: "JKL3", CustomerName: "Robin Vale", InTransitQty: 3, ShipmentRef: "SHP-900"},
	}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Updated != 2 {
		t.Fatalf("expected two updates, got %+v", result)
	}
	if got := repo.records[onOrder.ID].ItemStatus; got != enums.ItemStatusInTransit {
		t.Fatalf("expected In Transit, got %s", got)
	}
	if got := repo.records[partial.ID].ItemStatus; got != enums.ItemStatusReordered {
		t.Fatalf("partially received row must become Reordered, got %s", got)
	}
	if repo.records[onOrder.ID].ShipmentRef != "SHP-900" {
		t.Fatalf("shipment ref not applied")
	}
}

func TestApplyUploadInvoicedNoMatchDropped(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	result := svc.ApplyUpload(context.Background(), enums.FeedKindInvoiced, []UploadRow{{
		ItemNo:       "NOPE1",
		CustomerName: "Nobody Home",
		ShipmentRef:  "SHP-1",
	}}, "uploader")

	if result.Err != nil {
		t.Fatalf("unexpected batch error: %v", result.Err)
	}
	if result.Skipped != 1 || len(repo.records) != 0 {
		t.Fatalf("invoiced rows without a match must be dropped, got %+v", result)
	}
}

func TestFindCandidatesZeroPaddedItem(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seedRecord(repo, models.PartRecord{
		ItemNo:     "ABC0001",
		OrderNo:    "26PAG5",
		ItemStatus: enums.ItemStatusOnOrder,
	})

	matches, err := svc.FindCandidates(context.Background(), UploadRow{
		ItemNo:  "ABC1",
		OrderNo: "26PAG5",
	}, enums.FeedKindBackOrder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("padded item number should match unpadded input, got %d matches", len(matches))
	}
}

func TestReceiveAccumulates(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:     "RCV1",
		ItemStatus: enums.ItemStatusInTransit,
		OrderedQty: 5,
	})

	if _, err := svc.Receive(context.Background(), "counter", []ReceiveInput{{PartID: seeded.ID, Qty: 2}}); err != nil {
		t.Fatalf("first receipt failed: %v", err)
	}
	rec := repo.records[seeded.ID]
	if rec.ItemStatus != enums.ItemStatusPartiallyReceived || rec.ReceivedQty != 2 {
		t.Fatalf("expected partial receipt, got %s qty %d", rec.ItemStatus, rec.ReceivedQty)
	}

	if _, err := svc.Receive(context.Background(), "counter", []ReceiveInput{{PartID: seeded.ID, Qty: 3}}); err != nil {
		t.Fatalf("second receipt failed: %v", err)
	}
	rec = repo.records[seeded.ID]
	if rec.ItemStatus != enums.ItemStatusReceived || rec.ReceivedQty != 5 {
		t.Fatalf("expected accumulated full receipt, got %s qty %d", rec.ItemStatus, rec.ReceivedQty)
	}
	if rec.ReceivedDate == nil {
		t.Fatal("full receipt must stamp the received date")
	}
}

func TestReceiveRejectsNonShipmentStatus(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:     "RCV2",
		ItemStatus: enums.ItemStatusOnOrder,
		OrderedQty: 1,
	})

	payloads, err := svc.Receive(context.Background(), "counter", []ReceiveInput{{PartID: seeded.ID, Qty: 1}})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict code, got %v", err)
	}
	if len(payloads) != 0 {
		t.Fatalf("rejected receipt must not produce payloads, got %d", len(payloads))
	}
}

func TestReceiveReturnsAdvisorPayloads(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	full := seedRecord(repo, models.PartRecord{
		ItemNo:         "RCV3",
		CustomerName:   "Lena Ortiz",
		ServiceAdvisor: "PRTADV KimL",
		ItemStatus:     enums.ItemStatusInTransit,
		OrderedQty:     1,
	})
	partial := seedRecord(repo, models.PartRecord{
		ItemNo:         "RCV4",
		ServiceAdvisor: "A MarkT",
		ItemStatus:     enums.ItemStatusInTransit,
		OrderedQty:     4,
	})

	payloads, err := svc.Receive(context.Background(), "counter", []ReceiveInput{
		{PartID: full.ID, Qty: 1},
		{PartID: partial.ID, Qty: 2},
	})
	if err != nil {
		t.Fatalf("receipt failed: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected a payload per booked row, got %d", len(payloads))
	}
	if payloads[0].Advisor != "PRTADV KimL" || payloads[0].Status != enums.ItemStatusReceived {
		t.Fatalf("full receipt payload wrong: %+v", payloads[0])
	}
	if payloads[0].Duration == "" {
		t.Fatal("received payload must carry an aging duration")
	}
	if payloads[1].Advisor != "A MarkT" || payloads[1].Status != enums.ItemStatusPartiallyReceived {
		t.Fatalf("partial receipt payload wrong: %+v", payloads[1])
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:     "ARC1",
		ItemStatus: enums.ItemStatusReceived,
		OrderedQty: 1,
		UpdatesLog: "\n[2026-01-05 08:00] uploader: Uploaded",
	})
	entriesBefore := strings.Count(seeded.UpdatesLog, "[")

	if err := svc.Archive(context.Background(), seeded.ID, "admin"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if !repo.records[seeded.ID].IsArchived {
		t.Fatal("expected archived record")
	}

	if err := svc.Restore(context.Background(), seeded.ID, "admin"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	rec := repo.records[seeded.ID]
	if rec.IsArchived {
		t.Fatal("expected restored record")
	}
	if rec.ItemStatus != enums.ItemStatusReceived {
		t.Fatalf("status must survive the round trip, got %s", rec.ItemStatus)
	}
	if got := strings.Count(rec.UpdatesLog, "["); got != entriesBefore+2 {
		t.Fatalf("expected archive and restore log entries, had %d now %d", entriesBefore, got)
	}
	if rec.PostedAt != nil || rec.PostedBy != "" {
		t.Fatalf("restore must clear posting stamps, got %q %v", rec.PostedBy, rec.PostedAt)
	}
}

func TestArchiveByDocument(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seedRecord(repo, models.PartRecord{ItemNo: "DOC1", DocumentNo: "D-77", ItemStatus: enums.ItemStatusReceived})
	seedRecord(repo, models.PartRecord{ItemNo: "DOC2", DocumentNo: "D-77", ItemStatus: enums.ItemStatusReceived})
	other := seedRecord(repo, models.PartRecord{ItemNo: "DOC3", DocumentNo: "D-88", ItemStatus: enums.ItemStatusReceived})

	posted, err := svc.ArchiveByDocument(context.Background(), "D-77", "accounting")
	if err != nil {
		t.Fatalf("post by document failed: %v", err)
	}
	if posted != 2 {
		t.Fatalf("expected two posted rows, got %d", posted)
	}
	for id, rec := range repo.records {
		if id == other.ID {
			if rec.IsArchived {
				t.Fatal("unrelated document must stay active")
			}
			continue
		}
		if !rec.IsArchived || rec.ItemStatus != enums.ItemStatusPosted {
			t.Fatalf("expected posted row, got %+v", rec)
		}
	}
}

func TestRemoveFromShipmentRollsBackInvoicedOnly(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:         "INV1",
		ItemStatus:     enums.ItemStatusInTransit,
		SourceFileType: enums.FeedKindInvoiced,
		ShipmentRef:    "SHP-5",
	})

	if err := svc.RemoveFromShipment(context.Background(), seeded.ID, "admin"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := repo.records[seeded.ID]; ok {
		t.Fatal("untouched invoiced-only row must be deleted")
	}
}

func TestRemoveFromShipmentReverts(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{
		ItemNo:         "INV2",
		ItemStatus:     enums.ItemStatusInTransit,
		SourceFileType: enums.FeedKindOnOrder,
		ShipmentRef:    "SHP-6",
		InTransitQty:   3,
		NextInfo:       "supplier delay",
	})

	if err := svc.RemoveFromShipment(context.Background(), seeded.ID, "admin"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	rec := repo.records[seeded.ID]
	if rec.ItemStatus != enums.ItemStatusBackOrder {
		t.Fatalf("expected revert to Back Order, got %s", rec.ItemStatus)
	}
	if rec.ShipmentRef != "" || rec.InTransitQty != 0 {
		t.Fatalf("shipment fields must be cleared, got %+v", rec)
	}
}

func TestSetDatesRejectsSentinels(t *testing.T) {
	repo := newStubLedgerRepo()
	svc := newTestService(t, repo)

	seeded := seedRecord(repo, models.PartRecord{ItemNo: "DT1", ItemStatus: enums.ItemStatusReceived})

	bad := "none"
	err := svc.SetDates(context.Background(), seeded.ID, DatesInput{CustomStockDate: &bad}, "admin")
	if err == nil {
		t.Fatal("expected validation error for sentinel date")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}

	good := "2026-08-01"
	if err := svc.SetDates(context.Background(), seeded.ID, DatesInput{CustomStockDate: &good}, "admin"); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	if repo.records[seeded.ID].CustomStockDate == nil {
		t.Fatal("custom stock date not stored")
	}
}

func TestApplyUploadCollectsRowErrors(t *testing.T) {
	repo := newStubLedgerRepo()
	repo.createErr = gorm.ErrInvalidDB
	svc := newTestService(t, repo)

	result := svc.ApplyUpload(context.Background(), enums.FeedKindOnOrder, []UploadRow{
		{ItemNo: "ERR1", OrderedQty: 1},
		{ItemNo: "ERR2", OrderedQty: 1},
	}, "uploader")

	if result.Err == nil {
		t.Fatal("expected collected row errors")
	}
	if result.Processed != 2 || result.Created != 0 {
		t.Fatalf("both rows should fail independently, got %+v", result)
	}
}
