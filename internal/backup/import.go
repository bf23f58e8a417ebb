package backup

import (
	"context"
	"log/slog"

	"github.com/marcus/visita/internal/models"
)

// ImportSummary counts the records written and skipped per collection.
type ImportSummary struct {
	Regions   int
	Products  int
	Stores    int
	Orders    int
	Visits    int
	VisitLogs int
	Skipped   int
}

// Total returns the number of records written across all collections.
func (s ImportSummary) Total() int {
	return s.Regions + s.Products + s.Stores + s.Orders + s.Visits + s.VisitLogs
}

// Import writes a snapshot to the remote. Catalog entries are deduplicated
// by name against the remote's existing rows, so re-importing the same
// backup does not grow the catalogs. A record that fails to write is
// logged and skipped; the import continues with the rest.
func Import(ctx context.Context, remote Remote, snap *Snapshot, logger *slog.Logger) (*ImportSummary, error) {
	sum := &ImportSummary{}

	existingRegions, err := remote.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	regionIDs := make(map[string]int64, len(existingRegions))
	for _, r := range existingRegions {
		regionIDs[r.Name] = r.ID
	}
	for _, r := range snap.Regions {
		if id, ok := regionIDs[r.Name]; ok {
			r.ID = id
		}
		if _, err := remote.UpsertRegion(ctx, r); err != nil {
			logger.Warn("skipping region", "name", r.Name, "error", err)
			sum.Skipped++
			continue
		}
		sum.Regions++
	}

	existingProducts, err := remote.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	productIDs := make(map[string]int64, len(existingProducts))
	for _, p := range existingProducts {
		productIDs[p.Name] = p.ID
	}
	for _, p := range snap.Products {
		if id, ok := productIDs[p.Name]; ok {
			p.ID = id
		}
		if _, err := remote.UpsertProduct(ctx, p); err != nil {
			logger.Warn("skipping product", "name", p.Name, "error", err)
			sum.Skipped++
			continue
		}
		sum.Products++
	}

	for _, s := range snap.Stores {
		s.Orders = nil
		s.VisitLogs = nil
		if _, err := remote.UpsertStore(ctx, s); err != nil {
			logger.Warn("skipping store", "id", s.ID, "name", s.Name, "error", err)
			sum.Skipped++
			continue
		}
		sum.Stores++
	}

	for _, o := range snap.Orders {
		if _, err := remote.UpsertOrder(ctx, o); err != nil {
			logger.Warn("skipping order", "id", o.ID, "store_id", o.StoreID, "error", err)
			sum.Skipped++
			continue
		}
		sum.Orders++
	}

	for _, v := range snap.Visits {
		if v.Status == "" {
			v.Status = models.VisitPending
		}
		if _, err := remote.UpsertVisit(ctx, v); err != nil {
			logger.Warn("skipping visit", "id", v.ID, "store_id", v.StoreID, "error", err)
			sum.Skipped++
			continue
		}
		sum.Visits++
	}

	for _, l := range snap.VisitLogs {
		if _, err := remote.UpsertVisitLog(ctx, l); err != nil {
			logger.Warn("skipping visit log", "id", l.ID, "store_id", l.StoreID, "error", err)
			sum.Skipped++
			continue
		}
		sum.VisitLogs++
	}

	return sum, nil
}
