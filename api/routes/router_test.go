package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	"github.com/dealerops/partstrail-backend/internal/remarks"
	"github.com/dealerops/partstrail-backend/pkg/config"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubDirectory struct{}

func (stubDirectory) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return &models.User{ID: 1, Username: username, UserType: "admin", Email: "admin@dealer.test"}, nil
}

func (stubDirectory) AdvisorEmail(ctx context.Context, advisorCode string) (string, error) {
	return "", nil
}

func (stubDirectory) ListAdvisors(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

type stubLedgerService struct{}

func (stubLedgerService) ApplyUpload(ctx context.Context, feed enums.FeedKind, rows []ledger.UploadRow, actor string) ledger.BatchResult {
	return ledger.BatchResult{}
}

func (stubLedgerService) FindCandidates(ctx context.Context, row ledger.UploadRow, feed enums.FeedKind) ([]models.PartRecord, error) {
	return nil, nil
}

func (stubLedgerService) Receive(ctx context.Context, actor string, inputs []ledger.ReceiveInput) ([]ledger.NotificationPayload, error) {
	return nil, nil
}

func (stubLedgerService) Archive(ctx context.Context, id uint, actor string) error {
	return nil
}

func (stubLedgerService) Restore(ctx context.Context, id uint, actor string) error {
	return nil
}

func (stubLedgerService) ArchiveByDocument(ctx context.Context, documentNo, actor string) (int, error) {
	return 0, nil
}

func (stubLedgerService) UpdateShipmentETA(ctx context.Context, shipmentRef, eta, actor string) (int, error) {
	return 0, nil
}

func (stubLedgerService) RemoveFromShipment(ctx context.Context, id uint, actor string) error {
	return nil
}

func (stubLedgerService) SetDates(ctx context.Context, id uint, input ledger.DatesInput, actor string) error {
	return nil
}

func (stubLedgerService) AddLogEntry(ctx context.Context, id uint, actor, action string) error {
	return nil
}

func (stubLedgerService) Get(ctx context.Context, id uint) (*models.PartRecord, error) {
	return &models.PartRecord{ID: id, ItemNo: "ABC0001", ItemStatus: enums.ItemStatusOnOrder}, nil
}

func (stubLedgerService) ListActive(ctx context.Context, scope ledger.ViewScope) ([]models.PartRecord, error) {
	return []models.PartRecord{{ID: 1, ItemNo: "ABC0001", ItemStatus: enums.ItemStatusOnOrder}}, nil
}

func (stubLedgerService) ListArchived(ctx context.Context, p pagination.Params) ([]models.PartRecord, string, error) {
	return nil, "", nil
}

func (stubLedgerService) Search(ctx context.Context, query string, scope ledger.ViewScope) ([]models.PartRecord, error) {
	return nil, nil
}

func (stubLedgerService) ShipmentSummaries(ctx context.Context) ([]ledger.ShipmentSummary, error) {
	return nil, nil
}

func (stubLedgerService) ShipmentItems(ctx context.Context, shipmentRef string) ([]models.PartRecord, error) {
	return nil, nil
}

func (stubLedgerService) Dashboard(ctx context.Context) (*ledger.DashboardMetrics, []ledger.TopPart, error) {
	return &ledger.DashboardMetrics{}, nil, nil
}

func (stubLedgerService) Aging(rec *models.PartRecord, now time.Time) string {
	return "IS 0 days"
}

type stubNotifications struct{}

func (stubNotifications) PublishUploadBatch(ctx context.Context, feed enums.FeedKind, payloads []ledger.NotificationPayload) error {
	return nil
}

func (stubNotifications) NotifyAdvisor(ctx context.Context, advisorCode, message string) error {
	return nil
}

func (stubNotifications) NotifyUser(ctx context.Context, userID uint, message string) error {
	return nil
}

func (stubNotifications) UnreadFor(ctx context.Context, recipient notifications.Recipient) ([]models.Notification, error) {
	return nil, nil
}

func (stubNotifications) MarkRead(ctx context.Context, id uint) error {
	return nil
}

func (stubNotifications) MarkAllRead(ctx context.Context, recipient notifications.Recipient) error {
	return nil
}

type stubRemarks struct{}

func (stubRemarks) Add(ctx context.Context, input remarks.AddInput) (*models.Remark, error) {
	return &models.Remark{ID: 1, PartID: input.PartID, RemarkText: input.RemarkText}, nil
}

func (stubRemarks) ListForPart(ctx context.Context, partID uint) ([]models.Remark, error) {
	return nil, nil
}

func (stubRemarks) TodayReminders(ctx context.Context, enteredBy string) ([]models.Remark, error) {
	return nil, nil
}

func (stubRemarks) MarkRead(ctx context.Context, id uint) error {
	return nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubDirectory{},
		stubLedgerService{},
		stubNotifications{},
		stubRemarks{},
		nil,
		nil,
		nil,
	)
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d", rec.Code)
	}
}

func TestPartsListRequiresIdentity(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity header but got %d", rec.Code)
	}
}

func TestPartsListWithIdentity(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parts", nil)
	req.Header.Set("X-PT-User", "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardRoleGate(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("X-PT-User", "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin but got %d", rec.Code)
	}
}
