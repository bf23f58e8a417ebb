package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/marcus/visita/internal/models"
)

// memRemote is an in-memory Remote for exercising fetch and import.
type memRemote struct {
	regions   []models.Region
	products  []models.Product
	stores    []models.Store
	orders    []models.Order
	visits    []models.Visit
	visitLogs []models.VisitLog

	nextID int64

	failStores bool
}

func (m *memRemote) assign(id int64) int64 {
	if id != 0 {
		return id
	}
	m.nextID++
	return m.nextID + 10000
}

func (m *memRemote) ListRegions(ctx context.Context) ([]models.Region, error) {
	return m.regions, nil
}
func (m *memRemote) ListProducts(ctx context.Context) ([]models.Product, error) {
	return m.products, nil
}
func (m *memRemote) ListStores(ctx context.Context, page, pageSize int, filters models.StoreFilters) ([]models.Store, error) {
	start := page * pageSize
	if start >= len(m.stores) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(m.stores) {
		end = len(m.stores)
	}
	return m.stores[start:end], nil
}
func (m *memRemote) ListOrders(ctx context.Context) ([]models.Order, error) {
	return m.orders, nil
}
func (m *memRemote) ListVisits(ctx context.Context) ([]models.Visit, error) {
	return m.visits, nil
}
func (m *memRemote) ListVisitLogs(ctx context.Context) ([]models.VisitLog, error) {
	return m.visitLogs, nil
}

func (m *memRemote) UpsertRegion(ctx context.Context, r models.Region) (*models.Region, error) {
	r.ID = m.assign(r.ID)
	m.regions = upsertByID(m.regions, r, func(v models.Region) int64 { return v.ID })
	return &r, nil
}
func (m *memRemote) UpsertProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	p.ID = m.assign(p.ID)
	m.products = upsertByID(m.products, p, func(v models.Product) int64 { return v.ID })
	return &p, nil
}
func (m *memRemote) UpsertStore(ctx context.Context, s models.Store) (*models.Store, error) {
	if m.failStores {
		return nil, errors.New("store write refused")
	}
	s.ID = m.assign(s.ID)
	m.stores = upsertByID(m.stores, s, func(v models.Store) int64 { return v.ID })
	return &s, nil
}
func (m *memRemote) UpsertOrder(ctx context.Context, o models.Order) (*models.Order, error) {
	o.ID = m.assign(o.ID)
	m.orders = upsertByID(m.orders, o, func(v models.Order) int64 { return v.ID })
	return &o, nil
}
func (m *memRemote) UpsertVisit(ctx context.Context, v models.Visit) (*models.Visit, error) {
	v.ID = m.assign(v.ID)
	m.visits = upsertByID(m.visits, v, func(x models.Visit) int64 { return x.ID })
	return &v, nil
}
func (m *memRemote) UpsertVisitLog(ctx context.Context, l models.VisitLog) (*models.VisitLog, error) {
	l.ID = m.assign(l.ID)
	m.visitLogs = upsertByID(m.visitLogs, l, func(v models.VisitLog) int64 { return v.ID })
	return &l, nil
}

func upsertByID[T any](list []T, v T, id func(T) int64) []T {
	for i := range list {
		if id(list[i]) == id(v) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSnapshot() *Snapshot {
	visited := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	return &Snapshot{
		Regions:  []models.Region{{ID: 1, Name: "North"}},
		Products: []models.Product{{ID: 1, Name: "Beans"}},
		Stores: []models.Store{
			{ID: 1, Name: "Corner Cafe", Region: "North", VisitDays: []int{1, 3},
				IdealTime: models.IdealNoon, PurchaseProb: models.ProbHigh,
				Visited: true, LastVisit: &visited},
			{ID: 2, Name: "Bakery"},
		},
		Orders: []models.Order{
			{ID: 1, StoreID: 1, Date: "2026-08-20", Text: "rush",
				Items: []models.OrderItem{{ProductID: 1, ProductName: "Beans", Count: 3}}},
		},
		Visits: []models.Visit{
			{ID: 1, StoreID: 2, VisitDate: "2026-09-01", Status: models.VisitPending},
		},
		VisitLogs: []models.VisitLog{
			{ID: 1, StoreID: 1, VisitedAt: visited, VisitType: models.VisitPhysical},
		},
	}
}

// --- Fetch ---

func TestFetchFlattensStores(t *testing.T) {
	remote := &memRemote{
		stores: []models.Store{
			{ID: 1, Name: "Cafe",
				Orders:    []models.Order{{ID: 1, StoreID: 1}},
				VisitLogs: []models.VisitLog{{ID: 1, StoreID: 1}}},
		},
		orders:    []models.Order{{ID: 1, StoreID: 1, Date: "2026-08-20"}},
		visitLogs: []models.VisitLog{{ID: 1, StoreID: 1, VisitedAt: time.Now()}},
	}

	snap, err := Fetch(context.Background(), remote)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Stores) != 1 {
		t.Fatalf("stores = %d", len(snap.Stores))
	}
	if snap.Stores[0].Orders != nil || snap.Stores[0].VisitLogs != nil {
		t.Error("fetched stores should be flat; children live in their own collections")
	}
	if len(snap.Orders) != 1 || len(snap.VisitLogs) != 1 {
		t.Errorf("flat collections: %d orders, %d logs", len(snap.Orders), len(snap.VisitLogs))
	}
}

// --- JSON ---

func TestJSONRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	var buf bytes.Buffer
	if err := ExportJSON(&buf, snap); err != nil {
		t.Fatal(err)
	}

	got, err := ParseJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Regions) != 1 || got.Regions[0].Name != "North" {
		t.Errorf("regions = %+v", got.Regions)
	}
	if len(got.Stores) != 2 {
		t.Fatalf("stores = %d", len(got.Stores))
	}
	if got.Stores[0].Orders != nil {
		t.Error("parsed stores should be flat")
	}
	if len(got.Orders) != 1 || got.Orders[0].StoreID != 1 {
		t.Errorf("orders = %+v", got.Orders)
	}
	if got.Orders[0].Items[0].ProductName != "Beans" {
		t.Errorf("items = %+v", got.Orders[0].Items)
	}
	if got.Stores[0].LastVisit == nil {
		t.Error("last visit lost in round trip")
	}
}

func TestJSONExportNestsOrders(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Stores []struct {
			ID     int64            `json:"id"`
			Orders []map[string]any `json:"orders"`
		} `json:"stores"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Stores) != 2 {
		t.Fatalf("stores = %d", len(doc.Stores))
	}
	if len(doc.Stores[0].Orders) != 1 {
		t.Errorf("store 1 should carry its order nested, got %+v", doc.Stores[0])
	}
	if len(doc.Stores[1].Orders) != 0 {
		t.Errorf("store 2 should have no orders, got %+v", doc.Stores[1])
	}
}

func TestParseLegacyShape(t *testing.T) {
	legacy := `{
		"data": {
			"visitor_regions": ["North", {"id": 2, "name": "South"}],
			"visitor_products": [{"id": 1, "name": "Beans"}],
			"visitor_stores": [{
				"id": 3.0,
				"name": "Corner Cafe",
				"region": "North",
				"sellerName": "Ana",
				"idealTime": "noon",
				"purchaseProb": "high",
				"visitDays": [1, 3],
				"orders": [{"id": 7.0, "date": "8/20/2026", "text": "",
					"items": [{"product_id": 1, "product_name": "Beans", "count": 2}]}]
			}]
		}
	}`

	snap, err := ParseJSON(strings.NewReader(legacy))
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Regions) != 2 {
		t.Fatalf("regions = %+v", snap.Regions)
	}
	if snap.Regions[0].Name != "North" || snap.Regions[0].ID != 0 {
		t.Errorf("bare-string region: %+v", snap.Regions[0])
	}
	if snap.Regions[1].Name != "South" {
		t.Errorf("object region: %+v", snap.Regions[1])
	}

	if len(snap.Stores) != 1 {
		t.Fatalf("stores = %+v", snap.Stores)
	}
	s := snap.Stores[0]
	if s.ID != 3 {
		t.Errorf("float id not floored: %d", s.ID)
	}
	if s.SellerName != "Ana" || s.IdealTime != models.IdealNoon || s.PurchaseProb != models.ProbHigh {
		t.Errorf("camelCase fields lost: %+v", s)
	}
	if len(s.VisitDays) != 2 {
		t.Errorf("visit days = %v", s.VisitDays)
	}

	if len(snap.Orders) != 1 {
		t.Fatalf("orders = %+v", snap.Orders)
	}
	if snap.Orders[0].ID != 7 || snap.Orders[0].StoreID != 3 {
		t.Errorf("order ids: %+v", snap.Orders[0])
	}
}

func TestParseJSONRejectsUnknownShape(t *testing.T) {
	if _, err := ParseJSON(strings.NewReader(`{"tasks": []}`)); err == nil {
		t.Fatal("expected error for unrecognized shape")
	}
	if _, err := ParseJSON(strings.NewReader(`not json`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

// --- Excel ---

func TestExcelRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	var buf bytes.Buffer
	if err := ExportExcel(&buf, snap); err != nil {
		t.Fatal(err)
	}

	got, err := ParseExcel(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Regions) != 1 || got.Regions[0].Name != "North" {
		t.Errorf("regions = %+v", got.Regions)
	}
	if len(got.Stores) != 2 {
		t.Fatalf("stores = %d", len(got.Stores))
	}
	s := got.Stores[0]
	if s.Name != "Corner Cafe" || !s.Visited {
		t.Errorf("store = %+v", s)
	}
	if len(s.VisitDays) != 2 || s.VisitDays[0] != 1 {
		t.Errorf("visit days cell not round-tripped: %v", s.VisitDays)
	}
	if s.LastVisit == nil || !s.LastVisit.Equal(*snap.Stores[0].LastVisit) {
		t.Errorf("last visit = %v", s.LastVisit)
	}
	if len(got.Orders) != 1 || got.Orders[0].Items[0].Count != 3 {
		t.Errorf("orders = %+v", got.Orders)
	}
	if len(got.VisitLogs) != 1 || got.VisitLogs[0].VisitType != models.VisitPhysical {
		t.Errorf("visit logs = %+v", got.VisitLogs)
	}
}

func TestParseExcelMissingSheets(t *testing.T) {
	// A workbook holding only regions imports with the rest empty.
	var buf bytes.Buffer
	if err := ExportExcel(&buf, &Snapshot{Regions: []models.Region{{ID: 1, Name: "North"}}}); err != nil {
		t.Fatal(err)
	}
	got, err := ParseExcel(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Regions) != 1 {
		t.Errorf("regions = %+v", got.Regions)
	}
	if len(got.Stores) != 0 || len(got.Orders) != 0 {
		t.Errorf("expected empty collections, got %+v", got)
	}
}

// --- Import ---

func TestImportDedupsCatalogsByName(t *testing.T) {
	remote := &memRemote{
		regions:  []models.Region{{ID: 5, Name: "North"}},
		products: []models.Product{{ID: 9, Name: "Beans"}},
	}

	snap := &Snapshot{
		Regions:  []models.Region{{ID: 77, Name: "North"}, {ID: 78, Name: "South"}},
		Products: []models.Product{{ID: 88, Name: "Beans"}},
	}

	sum, err := Import(context.Background(), remote, snap, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Regions != 2 || sum.Products != 1 {
		t.Errorf("summary = %+v", sum)
	}

	// "North" overwrote the existing row instead of duplicating it.
	if len(remote.regions) != 2 {
		t.Fatalf("regions = %+v", remote.regions)
	}
	if remote.regions[0].ID != 5 {
		t.Errorf("existing region id changed: %+v", remote.regions[0])
	}
	if len(remote.products) != 1 || remote.products[0].ID != 9 {
		t.Errorf("products = %+v", remote.products)
	}
}

func TestImportSkipsFailingRecords(t *testing.T) {
	remote := &memRemote{failStores: true}
	snap := sampleSnapshot()

	sum, err := Import(context.Background(), remote, snap, discardLogger())
	if err != nil {
		t.Fatalf("partial failure should not abort: %v", err)
	}
	if sum.Stores != 0 || sum.Skipped != 2 {
		t.Errorf("summary = %+v", sum)
	}
	// The other collections still land.
	if sum.Regions != 1 || sum.Orders != 1 || sum.Visits != 1 || sum.VisitLogs != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestImportRoundTripThroughRemote(t *testing.T) {
	remote := &memRemote{}
	snap := sampleSnapshot()

	if _, err := Import(context.Background(), remote, snap, discardLogger()); err != nil {
		t.Fatal(err)
	}

	fetched, err := Fetch(context.Background(), remote)
	if err != nil {
		t.Fatal(err)
	}
	if len(fetched.Stores) != 2 || len(fetched.Orders) != 1 || len(fetched.Visits) != 1 {
		t.Errorf("fetched = %d stores, %d orders, %d visits",
			len(fetched.Stores), len(fetched.Orders), len(fetched.Visits))
	}
}
