// Package backup serializes the full data set to JSON and spreadsheet
// interchange formats and normalizes the three known import shapes into
// one canonical form before handing records to the remote write path.
package backup

import (
	"context"
	"fmt"

	"github.com/marcus/visita/internal/models"
)

// fetchPageSize matches the original bulk-export chunk size.
const fetchPageSize = 1000

// Snapshot is the canonical flat shape every import format converges to
// and every export format is produced from.
type Snapshot struct {
	Regions   []models.Region
	Products  []models.Product
	Stores    []models.Store // flat; nested orders extracted on parse
	Orders    []models.Order
	Visits    []models.Visit
	VisitLogs []models.VisitLog
}

// Remote is the slice of the API client the backup paths depend on.
type Remote interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListStores(ctx context.Context, page, pageSize int, filters models.StoreFilters) ([]models.Store, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListVisits(ctx context.Context) ([]models.Visit, error)
	ListVisitLogs(ctx context.Context) ([]models.VisitLog, error)

	UpsertRegion(ctx context.Context, r models.Region) (*models.Region, error)
	UpsertProduct(ctx context.Context, p models.Product) (*models.Product, error)
	UpsertStore(ctx context.Context, s models.Store) (*models.Store, error)
	UpsertOrder(ctx context.Context, o models.Order) (*models.Order, error)
	UpsertVisit(ctx context.Context, v models.Visit) (*models.Visit, error)
	UpsertVisitLog(ctx context.Context, l models.VisitLog) (*models.VisitLog, error)
}

// Fetch pulls every collection from the remote into a snapshot. Stores
// are paged in bulk chunks until a short page signals the end.
func Fetch(ctx context.Context, remote Remote) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error

	if snap.Regions, err = remote.ListRegions(ctx); err != nil {
		return nil, fmt.Errorf("fetch regions: %w", err)
	}
	if snap.Products, err = remote.ListProducts(ctx); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	for page := 0; ; page++ {
		stores, err := remote.ListStores(ctx, page, fetchPageSize, models.StoreFilters{})
		if err != nil {
			return nil, fmt.Errorf("fetch stores page %d: %w", page, err)
		}
		snap.Stores = append(snap.Stores, stores...)
		if len(stores) < fetchPageSize {
			break
		}
	}

	if snap.Orders, err = remote.ListOrders(ctx); err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if snap.Visits, err = remote.ListVisits(ctx); err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	if snap.VisitLogs, err = remote.ListVisitLogs(ctx); err != nil {
		return nil, fmt.Errorf("fetch visit logs: %w", err)
	}

	// The canonical shape keeps stores flat; nested reads are a display
	// concern.
	for i := range snap.Stores {
		snap.Stores[i].Orders = nil
		snap.Stores[i].VisitLogs = nil
	}

	return snap, nil
}

// nestOrders groups flat orders under their owning stores, for the JSON
// export shape. Orders whose store is absent are dropped from nesting but
// remain in the flat list.
func nestOrders(stores []models.Store, orders []models.Order) []models.Store {
	byStore := make(map[int64][]models.Order)
	for _, o := range orders {
		byStore[o.StoreID] = append(byStore[o.StoreID], o)
	}
	out := make([]models.Store, len(stores))
	for i, s := range stores {
		s.Orders = byStore[s.ID]
		s.VisitLogs = nil
		out[i] = s
	}
	return out
}
