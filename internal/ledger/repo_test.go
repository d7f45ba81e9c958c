package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:ledgertest?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	parts := `
CREATE TABLE IF NOT EXISTS parts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_no TEXT,
  item_key TEXT,
  item_description TEXT,
  customer_no TEXT,
  customer_name TEXT,
  vin TEXT,
  document_no TEXT,
  order_no TEXT,
  service_advisor TEXT,
  item_status TEXT,
  eta TEXT,
  ordered_qty INTEGER NOT NULL DEFAULT 0,
  in_transit_qty INTEGER NOT NULL DEFAULT 0,
  received_qty INTEGER NOT NULL DEFAULT 0,
  cardown TEXT DEFAULT 'No',
  updates_log TEXT DEFAULT '',
  is_archived INTEGER NOT NULL DEFAULT 0,
  source_file_type TEXT,
  shipment_ref TEXT DEFAULT '',
  next_info TEXT,
  posted_by TEXT,
  posted_at DATETIME,
  custom_stock_date DATETIME,
  back_order_original_date DATETIME,
  received_date DATETIME,
  last_reminder_sent DATETIME,
  last_updated DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(parts).Error)
	require.NoError(t, db.Exec(`DELETE FROM parts`).Error)

	return db
}

func TestRepoFindActiveByItemKey(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.PartRecord{
		ItemNo:     "ABC0001",
		ItemStatus: enums.ItemStatusOnOrder,
	}))
	require.NoError(t, repo.Create(ctx, &models.PartRecord{
		ItemNo:     "ABC0001",
		ItemStatus: enums.ItemStatusReceived,
		IsArchived: true,
	}))

	rows, err := repo.FindActiveByItemKey(ctx, "ABC1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ABC0001", rows[0].ItemNo)
	assert.Equal(t, "ABC1", rows[0].ItemKey)
}

func TestRepoListActiveScoping(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seed := []models.PartRecord{
		{ItemNo: "P1", ServiceAdvisor: "EMB TonyR", ItemStatus: enums.ItemStatusOnOrder, CustomerName: "A"},
		{ItemNo: "P2", ServiceAdvisor: "OTC", ItemStatus: enums.ItemStatusOnOrder, CustomerName: "B"},
		{ItemNo: "P3", ServiceAdvisor: "JDoe", ItemStatus: enums.ItemStatusOnOrder, CustomerName: "C"},
		{ItemNo: "P4", ServiceAdvisor: "JDoe", ItemStatus: enums.ItemStatusBackOrder, CustomerName: ""},
		{ItemNo: "P5", ServiceAdvisor: "JDoe", ItemStatus: enums.ItemStatusOnOrder, IsArchived: true},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	admin, err := repo.ListActive(ctx, ViewScope{Roles: enums.RoleSet{enums.UserRoleAdmin}})
	require.NoError(t, err)
	assert.Len(t, admin, 3, "admins see all active rows except customerless back orders")

	general, err := repo.ListActive(ctx, ViewScope{Roles: enums.RoleSet{enums.UserRoleGeneral}})
	require.NoError(t, err)
	assert.Len(t, general, 2, "general roles never see the counter")

	counter, err := repo.ListActive(ctx, ViewScope{Roles: enums.RoleSet{enums.UserRoleCounter}})
	require.NoError(t, err)
	require.Len(t, counter, 1)
	assert.Equal(t, "P2", counter[0].ItemNo)

	advisor, err := repo.ListActive(ctx, ViewScope{Roles: enums.RoleSet{enums.UserRoleAdvisor}, AdvisorCode: "JDoe"})
	require.NoError(t, err)
	require.Len(t, advisor, 1)
	assert.Equal(t, "P3", advisor[0].ItemNo)

	lead, err := repo.ListActive(ctx, ViewScope{Roles: enums.RoleSet{enums.UserRoleGroupLead}})
	require.NoError(t, err)
	require.Len(t, lead, 1)
	assert.Equal(t, "P1", lead[0].ItemNo)
}

func TestRepoListArchivedPagination(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := models.PartRecord{
			ItemNo:     "ARC" + string(rune('A'+i)),
			ItemStatus: enums.ItemStatusReceived,
			IsArchived: true,
		}
		require.NoError(t, repo.Create(ctx, &rec))
		// Spread the update timestamps so cursor ordering is deterministic.
		require.NoError(t, db.Exec(`UPDATE parts SET last_updated = ? WHERE id = ?`,
			base.Add(time.Duration(i)*time.Hour), rec.ID).Error)
	}

	first, next, err := repo.ListArchived(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, next)
	assert.Equal(t, "ARCE", first[0].ItemNo)
	assert.Equal(t, "ARCD", first[1].ItemNo)

	second, next, err := repo.ListArchived(ctx, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.NotEmpty(t, next)
	assert.Equal(t, "ARCC", second[0].ItemNo)

	last, next, err := repo.ListArchived(ctx, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Empty(t, next)
	assert.Equal(t, "ARCA", last[0].ItemNo)
}

func TestRepoShipmentQueries(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seed := []models.PartRecord{
		{ItemNo: "S1", ShipmentRef: "SHP-1", ItemStatus: enums.ItemStatusInTransit, ETA: "2026-09-10"},
		{ItemNo: "S2", ShipmentRef: "SHP-1", ItemStatus: enums.ItemStatusReordered, ETA: "2026-09-12"},
		{ItemNo: "S3", ShipmentRef: "SHP-1", ItemStatus: enums.ItemStatusReceived},
		{ItemNo: "S4", ShipmentRef: "SHP-2", ItemStatus: enums.ItemStatusReceived},
		{ItemNo: "S5", ShipmentRef: "", ItemStatus: enums.ItemStatusOnOrder},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	refs, err := repo.PendingShipmentRefs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SHP-1"}, refs)

	items, err := repo.ShipmentItems(ctx, "SHP-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	summaries, err := repo.ShipmentSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	byRef := map[string]ShipmentSummary{}
	for _, s := range summaries {
		byRef[s.ShipmentRef] = s
	}
	assert.Equal(t, 3, byRef["SHP-1"].TotalItems)
	assert.Equal(t, 2, byRef["SHP-1"].InTransitCount)
	assert.Equal(t, string(enums.ItemStatusInTransit), byRef["SHP-1"].Status)
	assert.Equal(t, string(enums.ItemStatusReceived), byRef["SHP-2"].Status)
}

func TestRepoStaleReceived(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recent := time.Now().Add(-1 * time.Hour)
	old := time.Now().AddDate(0, 0, -3)

	seed := []models.PartRecord{
		{ItemNo: "R1", ItemStatus: enums.ItemStatusReceived},
		{ItemNo: "R2", ItemStatus: enums.ItemStatusReceived, LastReminderSent: &recent},
		{ItemNo: "R3", ItemStatus: enums.ItemStatusReceived, LastReminderSent: &old},
		{ItemNo: "R4", ItemStatus: enums.ItemStatusOnOrder},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	rows, err := repo.StaleReceived(ctx, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	var items []string
	for _, r := range rows {
		items = append(items, r.ItemNo)
	}
	assert.ElementsMatch(t, []string{"R1", "R3"}, items)

	require.NoError(t, repo.StampReminder(ctx, []uint{rows[0].ID, rows[1].ID}, time.Now()))
	rows, err = repo.StaleReceived(ctx, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepoMetricsAndTopParts(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seed := []models.PartRecord{
		{ItemNo: "M1", ItemStatus: enums.ItemStatusReceived, Cardown: "Yes", OrderedQty: 2},
		{ItemNo: "M1", ItemStatus: enums.ItemStatusOnOrder, Cardown: "No", OrderedQty: 3},
		{ItemNo: "M2", ItemStatus: enums.ItemStatusOnOrder, Cardown: "Yes - waiting", OrderedQty: 1},
		{ItemNo: "M3", ItemStatus: enums.ItemStatusReceived, IsArchived: true, OrderedQty: 9},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	m, err := repo.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.ActiveOrders)
	assert.Equal(t, int64(2), m.CarDown)
	assert.Equal(t, int64(1), m.ReceivedCount)

	top, err := repo.TopOrderedParts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "M1", top[0].ItemNo)
	assert.Equal(t, int64(2), top[0].Frequency)
	assert.Equal(t, int64(5), top[0].TotalQty)
}

func TestRepoSearch(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seed := []models.PartRecord{
		{ItemNo: "BRK-100", CustomerName: "Dana West", OrderNo: "26PAG1", ItemStatus: enums.ItemStatusOnOrder, ServiceAdvisor: "JDoe"},
		{ItemNo: "FLT-200", CustomerName: "Sam Brook", OrderNo: "26PAG2", ItemStatus: enums.ItemStatusOnOrder, ServiceAdvisor: "KLee"},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	rows, err := repo.Search(ctx, "Brook", ViewScope{Roles: enums.RoleSet{enums.UserRoleAdmin}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FLT-200", rows[0].ItemNo)

	rows, err = repo.Search(ctx, "BRK", ViewScope{Roles: enums.RoleSet{enums.UserRoleAdvisor}, AdvisorCode: "KLee"})
	require.NoError(t, err)
	assert.Empty(t, rows, "search respects the caller's scope")
}
