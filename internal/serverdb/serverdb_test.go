package serverdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/visita/internal/models"
)

func newTestDB(t *testing.T) *ServerDB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addStore(t *testing.T, db *ServerDB, s models.Store) *models.Store {
	t.Helper()
	saved, err := db.UpsertStore(s)
	if err != nil {
		t.Fatalf("upsert store %q: %v", s.Name, err)
	}
	return saved
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// --- Schema tests ---

func TestFreshDatabaseSchemaVersion(t *testing.T) {
	db := newTestDB(t)
	if v := db.getSchemaVersion(); v != ServerSchemaVersion {
		t.Errorf("fresh db version = %d, want %d", v, ServerSchemaVersion)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := newTestDB(t)
	n, err := db.RunMigrations()
	if err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no migrations on current db, ran %d", n)
	}
}

func TestIsMissingSchema(t *testing.T) {
	db := newTestDB(t)
	_, err := db.conn.Exec("SELECT * FROM nonexistent")
	if !IsMissingSchema(err) {
		t.Errorf("expected missing-table error, got %v", err)
	}
	_, err = db.conn.Exec("SELECT nonexistent FROM stores")
	if !IsMissingSchema(err) {
		t.Errorf("expected missing-column error, got %v", err)
	}
	if IsMissingSchema(nil) {
		t.Error("nil should not be a missing-schema error")
	}
}

func TestOpenExistingDoesNotRepairSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old-snapshot.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	if _, err := db.conn.Exec("DROP TABLE visit_logs"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	old, err := OpenExisting(path)
	if err != nil {
		t.Fatalf("open existing: %v", err)
	}
	defer old.Close()

	if _, err := old.ListVisitLogs(); !IsMissingSchema(err) {
		t.Errorf("expected missing-schema error from dropped table, got %v", err)
	}
	// The untouched tables still read fine.
	if _, err := old.ListRegions(); err != nil {
		t.Errorf("list regions on existing db: %v", err)
	}
}

func TestOpenExistingRequiresFile(t *testing.T) {
	if _, err := OpenExisting(filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Error("expected error opening a missing file")
	}
}

// --- Catalog tests ---

func TestUpsertRegionAssignsID(t *testing.T) {
	db := newTestDB(t)
	r, err := db.UpsertRegion(models.Region{Name: "North"})
	if err != nil {
		t.Fatalf("upsert region: %v", err)
	}
	if r.ID == 0 {
		t.Error("expected assigned id")
	}
}

func TestUpsertRegionByIDOverwrites(t *testing.T) {
	db := newTestDB(t)
	r, _ := db.UpsertRegion(models.Region{Name: "North"})
	if _, err := db.UpsertRegion(models.Region{ID: r.ID, Name: "Northeast"}); err != nil {
		t.Fatalf("upsert by id: %v", err)
	}
	regions, err := db.ListRegions()
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].Name != "Northeast" {
		t.Errorf("name = %q, want Northeast", regions[0].Name)
	}
}

func TestDeleteRegionNotFound(t *testing.T) {
	db := newTestDB(t)
	if err := db.DeleteRegion(999); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

// --- Store tests ---

func TestUpsertStoreRequiresName(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.UpsertStore(models.Store{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestUpsertStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	saved := addStore(t, db, models.Store{
		Name:         "Corner Cafe",
		Region:       "North",
		SellerName:   "Ana",
		Phone:        "555-0100",
		VisitDays:    []int{1, 3},
		IdealTime:    models.IdealNoon,
		PurchaseProb: models.ProbHigh,
	})

	got, err := db.GetStore(saved.ID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if got.Name != "Corner Cafe" || got.Region != "North" || got.SellerName != "Ana" {
		t.Errorf("unexpected store: %+v", got)
	}
	if got.IdealTime != models.IdealNoon || got.PurchaseProb != models.ProbHigh {
		t.Errorf("enums not preserved: %s %s", got.IdealTime, got.PurchaseProb)
	}
	if len(got.VisitDays) != 2 || got.VisitDays[0] != 1 || got.VisitDays[1] != 3 {
		t.Errorf("visit days = %v, want [1 3]", got.VisitDays)
	}
	if got.LastVisit != nil {
		t.Error("new store should have no last visit")
	}
}

func TestGetStoreNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetStore(42); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListStoresPagination(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		addStore(t, db, models.Store{Name: "Store " + string(rune('A'+i))})
	}

	now := time.Now()
	page0, err := db.ListStores(0, 2, models.StoreFilters{}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(page0) != 2 {
		t.Fatalf("page 0 len = %d, want 2", len(page0))
	}

	page1, err := db.ListStores(1, 2, models.StoreFilters{}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 len = %d, want 2", len(page1))
	}
	if page0[0].ID == page1[0].ID {
		t.Error("pages overlap")
	}

	page2, err := db.ListStores(2, 2, models.StoreFilters{}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 1 {
		t.Fatalf("page 2 len = %d, want 1 (short final page)", len(page2))
	}
}

func TestListStoresNewestFirst(t *testing.T) {
	db := newTestDB(t)
	first := addStore(t, db, models.Store{Name: "First"})
	second := addStore(t, db, models.Store{Name: "Second"})

	stores, err := db.ListStores(0, 10, models.StoreFilters{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if stores[0].ID != second.ID || stores[1].ID != first.ID {
		t.Errorf("expected newest first, got ids %d, %d", stores[0].ID, stores[1].ID)
	}
}

func TestListStoresRegionFilter(t *testing.T) {
	db := newTestDB(t)
	addStore(t, db, models.Store{Name: "A", Region: "North"})
	addStore(t, db, models.Store{Name: "B", Region: "South"})

	stores, err := db.ListStores(0, 10, models.StoreFilters{Region: "North"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 1 || stores[0].Name != "A" {
		t.Errorf("region filter returned %+v", stores)
	}
}

func TestListStoresWeekdayFilter(t *testing.T) {
	db := newTestDB(t)
	addStore(t, db, models.Store{Name: "Monday shop", VisitDays: []int{1}})
	addStore(t, db, models.Store{Name: "Weekend shop", VisitDays: []int{0, 6}})
	addStore(t, db, models.Store{Name: "No days"})

	stores, err := db.ListStores(0, 10, models.StoreFilters{Weekday: "6"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 1 || stores[0].Name != "Weekend shop" {
		t.Errorf("weekday filter returned %+v", stores)
	}
}

func TestListStoresVisitStatusFilter(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-10 * 24 * time.Hour)

	addStore(t, db, models.Store{Name: "Fresh", LastVisit: &recent})
	addStore(t, db, models.Store{Name: "Stale", LastVisit: &stale})
	addStore(t, db, models.Store{Name: "Never"})

	visited, err := db.ListStores(0, 10, models.StoreFilters{VisitStatus: "visited"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 1 || visited[0].Name != "Fresh" {
		t.Errorf("visited filter returned %+v", visited)
	}

	notVisited, err := db.ListStores(0, 10, models.StoreFilters{VisitStatus: "not_visited"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(notVisited) != 2 {
		t.Errorf("not_visited filter returned %d stores, want 2", len(notVisited))
	}
}

func TestSearchStores(t *testing.T) {
	db := newTestDB(t)
	addStore(t, db, models.Store{Name: "Corner Cafe", Phone: "555-0100"})
	addStore(t, db, models.Store{Name: "Bakery", SellerName: "Maria Corner"})
	addStore(t, db, models.Store{Name: "Butcher"})

	stores, err := db.SearchStores("corner")
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 2 {
		t.Errorf("search returned %d stores, want 2", len(stores))
	}

	empty, err := db.SearchStores("   ")
	if err != nil {
		t.Fatal(err)
	}
	if empty != nil {
		t.Errorf("blank query should return nil, got %v", empty)
	}
}

// --- Visit toggle tests ---

func TestLogVisitMarksStore(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	now := time.Now()
	start, end := dayBounds(now)
	log, err := db.LogVisit(s.ID, models.VisitPhysical, now, start, end)
	if err != nil {
		t.Fatalf("log visit: %v", err)
	}
	if log.ID == 0 {
		t.Error("expected assigned log id")
	}

	got, _ := db.GetStore(s.ID)
	if !got.Visited {
		t.Error("store not marked visited")
	}
	if got.LastVisit == nil {
		t.Fatal("last visit not set")
	}
}

func TestLogVisitSameDayDedup(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	now := time.Now()
	start, end := dayBounds(now)
	first, err := db.LogVisit(s.ID, models.VisitPhysical, now, start, end)
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.LogVisit(s.ID, models.VisitPhysical, now.Add(time.Hour), start, end)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("same-day repeat created a new log: %d then %d", first.ID, second.ID)
	}

	logs, err := db.ListVisitLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}
}

func TestLogVisitSeparateTypesSameDay(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	now := time.Now()
	start, end := dayBounds(now)
	phys, err := db.LogVisit(s.ID, models.VisitPhysical, now, start, end)
	if err != nil {
		t.Fatal(err)
	}
	phone, err := db.LogVisit(s.ID, models.VisitPhone, now, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if phys.ID == phone.ID {
		t.Error("phone and physical logs should be distinct")
	}
}

func TestLogVisitUnknownStore(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	start, end := dayBounds(now)
	if _, err := db.LogVisit(999, models.VisitPhysical, now, start, end); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestClearVisit(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	now := time.Now()
	start, end := dayBounds(now)
	if _, err := db.LogVisit(s.ID, models.VisitPhysical, now, start, end); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearVisit(s.ID, models.VisitPhysical, start, end); err != nil {
		t.Fatalf("clear visit: %v", err)
	}

	got, _ := db.GetStore(s.ID)
	if got.Visited || got.LastVisit != nil {
		t.Errorf("store still visited after clear: %+v", got)
	}
	logs, _ := db.ListVisitLogs()
	if len(logs) != 0 {
		t.Errorf("expected logs removed, got %d", len(logs))
	}
}

func TestClearVisitKeepsOtherType(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	now := time.Now()
	start, end := dayBounds(now)
	db.LogVisit(s.ID, models.VisitPhone, now, start, end)
	db.LogVisit(s.ID, models.VisitPhysical, now, start, end)

	if err := db.ClearVisit(s.ID, models.VisitPhysical, start, end); err != nil {
		t.Fatal(err)
	}
	logs, _ := db.ListVisitLogs()
	if len(logs) != 1 || logs[0].VisitType != models.VisitPhone {
		t.Errorf("expected phone log kept, got %+v", logs)
	}
}

func TestResetVisited(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	start, end := dayBounds(now)

	a := addStore(t, db, models.Store{Name: "A"})
	b := addStore(t, db, models.Store{Name: "B"})
	db.LogVisit(a.ID, models.VisitPhysical, now, start, end)
	db.LogVisit(b.ID, models.VisitPhysical, now, start, end)

	n, err := db.ResetVisited()
	if err != nil {
		t.Fatalf("reset visited: %v", err)
	}
	if n != 2 {
		t.Errorf("reset %d stores, want 2", n)
	}

	got, _ := db.GetStore(a.ID)
	if got.Visited {
		t.Error("store still flagged visited")
	}
	if got.LastVisit == nil {
		t.Error("reset should keep last_visit history")
	}

	// Idempotent
	n, err = db.ResetVisited()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second reset touched %d stores, want 0", n)
	}
}

// --- Child attachment tests ---

func TestListStoresAttachesChildren(t *testing.T) {
	db := newTestDB(t)
	s := addStore(t, db, models.Store{Name: "Cafe"})

	if _, err := db.UpsertOrder(models.Order{
		StoreID: s.ID,
		Date:    "2026-08-30",
		Items:   []models.OrderItem{{ProductID: 1, ProductName: "Beans", Count: 3}},
	}); err != nil {
		t.Fatalf("upsert order: %v", err)
	}
	now := time.Now()
	start, end := dayBounds(now)
	if _, err := db.LogVisit(s.ID, models.VisitPhysical, now, start, end); err != nil {
		t.Fatal(err)
	}

	stores, err := db.ListStores(0, 10, models.StoreFilters{}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 1 {
		t.Fatalf("expected 1 store, got %d", len(stores))
	}
	got := stores[0]
	if len(got.Orders) != 1 {
		t.Fatalf("expected 1 order attached, got %d", len(got.Orders))
	}
	if got.Orders[0].Items[0].ProductName != "Beans" {
		t.Errorf("order items not round-tripped: %+v", got.Orders[0].Items)
	}
	if len(got.VisitLogs) != 1 {
		t.Errorf("expected 1 visit log attached, got %d", len(got.VisitLogs))
	}
}

// --- Stats tests ---

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	start, end := dayBounds(now)

	db.UpsertRegion(models.Region{Name: "North"})
	db.UpsertProduct(models.Product{Name: "Beans"})
	s := addStore(t, db, models.Store{Name: "Cafe"})
	db.UpsertVisit(models.Visit{StoreID: s.ID, VisitDate: "2026-09-01"})
	db.LogVisit(s.ID, models.VisitPhysical, now, start, end)

	stats, err := db.GetStats(now)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Regions != 1 || stats.Products != 1 || stats.Stores != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.PendingVisits != 1 {
		t.Errorf("pending visits = %d, want 1", stats.PendingVisits)
	}
	if stats.VisitedThisWeek != 1 {
		t.Errorf("visited this week = %d, want 1", stats.VisitedThisWeek)
	}
}

func TestDeleteStoreCascades(t *testing.T) {
	db := newTestDB(t)
	doomed := addStore(t, db, models.Store{Name: "Doomed"})
	kept := addStore(t, db, models.Store{Name: "Kept"})

	for _, storeID := range []int64{doomed.ID, kept.ID} {
		if _, err := db.UpsertOrder(models.Order{StoreID: storeID, Date: "2026-08-30"}); err != nil {
			t.Fatalf("upsert order: %v", err)
		}
		if _, err := db.UpsertVisit(models.Visit{StoreID: storeID, VisitDate: "2026-09-01"}); err != nil {
			t.Fatalf("upsert visit: %v", err)
		}
		if _, err := db.UpsertVisitLog(models.VisitLog{StoreID: storeID, VisitedAt: time.Now(), VisitType: models.VisitPhysical}); err != nil {
			t.Fatalf("upsert visit log: %v", err)
		}
	}

	if err := db.DeleteStore(doomed.ID); err != nil {
		t.Fatalf("delete store: %v", err)
	}

	orders, err := db.ListOrders()
	if err != nil {
		t.Fatal(err)
	}
	visits, err := db.ListVisits()
	if err != nil {
		t.Fatal(err)
	}
	logs, err := db.ListVisitLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].StoreID != kept.ID {
		t.Errorf("orders after cascade: %+v", orders)
	}
	if len(visits) != 1 || visits[0].StoreID != kept.ID {
		t.Errorf("visits after cascade: %+v", visits)
	}
	if len(logs) != 1 || logs[0].StoreID != kept.ID {
		t.Errorf("visit logs after cascade: %+v", logs)
	}
}
