package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/marcus/visita/internal/models"
)

// jsonDocument is the JSON backup layout: four top-level arrays, with
// orders nested inside their stores.
type jsonDocument struct {
	Regions  []models.Region  `json:"regions"`
	Products []models.Product `json:"products"`
	Stores   []models.Store   `json:"stores"`
	Visits   []models.Visit   `json:"visits"`
}

// ExportJSON writes the snapshot as the canonical JSON backup document.
func ExportJSON(w io.Writer, snap *Snapshot) error {
	doc := jsonDocument{
		Regions:  snap.Regions,
		Products: snap.Products,
		Stores:   nestOrders(snap.Stores, snap.Orders),
		Visits:   snap.Visits,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// legacyStore is the old nested export's camelCase store shape. Ids were
// written as floats by the legacy exporter.
type legacyStore struct {
	ID           float64       `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Address      string        `json:"address"`
	Phone        string        `json:"phone"`
	Region       string        `json:"region"`
	Visited      bool          `json:"visited"`
	SellerName   string        `json:"sellerName"`
	IdealTime    string        `json:"idealTime"`
	PurchaseProb string        `json:"purchaseProb"`
	VisitDays    []int         `json:"visitDays"`
	Orders       []legacyOrder `json:"orders"`
}

type legacyOrder struct {
	ID    float64            `json:"id"`
	Date  string             `json:"date"`
	Text  string             `json:"text"`
	Items []models.OrderItem `json:"items"`
}

// legacyWrapper is the old export's top-level shape: everything under a
// "data" key with visitor_-prefixed collections.
type legacyWrapper struct {
	VisitorRegions  []json.RawMessage `json:"visitor_regions"`
	VisitorProducts []models.Product  `json:"visitor_products"`
	VisitorStores   []legacyStore     `json:"visitor_stores"`
}

// rawDocument is the loose parse used for shape detection.
type rawDocument struct {
	Data      *legacyWrapper    `json:"data"`
	Regions   []json.RawMessage `json:"regions"`
	Products  []models.Product  `json:"products"`
	Stores    []models.Store    `json:"stores"`
	Visits    []models.Visit    `json:"visits"`
	VisitLogs []models.VisitLog `json:"visit_logs"`
}

// ParseJSON reads a JSON backup in either the canonical or the legacy
// nested shape and normalizes it to the canonical flat snapshot. A
// malformed document is an error; the import aborts before any write.
func ParseJSON(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	if doc.Data != nil && (doc.Data.VisitorStores != nil || doc.Data.VisitorRegions != nil) {
		return parseLegacy(doc.Data)
	}

	if doc.Regions == nil && doc.Stores == nil {
		return nil, fmt.Errorf("parse backup: unrecognized format")
	}

	snap := &Snapshot{
		Products:  doc.Products,
		Visits:    doc.Visits,
		VisitLogs: doc.VisitLogs,
	}

	for _, raw := range doc.Regions {
		region, err := parseRegion(raw)
		if err != nil {
			return nil, err
		}
		snap.Regions = append(snap.Regions, region)
	}

	// Extract nested orders into the flat collection, injecting the
	// owning store's id where the nested record lacks it.
	for _, store := range doc.Stores {
		orders := store.Orders
		store.Orders = nil
		store.VisitLogs = nil
		snap.Stores = append(snap.Stores, store)
		for _, o := range orders {
			if o.StoreID == 0 {
				o.StoreID = store.ID
			}
			snap.Orders = append(snap.Orders, o)
		}
	}

	return snap, nil
}

// parseLegacy converts the old nested camelCase export. Regions may be
// bare strings; ids are floored to integers.
func parseLegacy(w *legacyWrapper) (*Snapshot, error) {
	snap := &Snapshot{Products: w.VisitorProducts}

	for _, raw := range w.VisitorRegions {
		region, err := parseRegion(raw)
		if err != nil {
			return nil, err
		}
		snap.Regions = append(snap.Regions, region)
	}

	for _, ls := range w.VisitorStores {
		storeID := int64(math.Floor(ls.ID))
		snap.Stores = append(snap.Stores, models.Store{
			ID:           storeID,
			Name:         ls.Name,
			Description:  ls.Description,
			Address:      ls.Address,
			Phone:        ls.Phone,
			Region:       ls.Region,
			Visited:      ls.Visited,
			SellerName:   ls.SellerName,
			IdealTime:    models.ParseIdealTime(ls.IdealTime),
			PurchaseProb: models.ParsePurchaseProb(ls.PurchaseProb),
			VisitDays:    ls.VisitDays,
		})
		for _, lo := range ls.Orders {
			snap.Orders = append(snap.Orders, models.Order{
				ID:      int64(math.Floor(lo.ID)),
				StoreID: storeID,
				Date:    lo.Date,
				Text:    lo.Text,
				Items:   lo.Items,
			})
		}
	}

	return snap, nil
}

// parseRegion accepts either a region object or a bare name string.
func parseRegion(raw json.RawMessage) (models.Region, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return models.Region{Name: name}, nil
	}
	var region models.Region
	if err := json.Unmarshal(raw, &region); err != nil {
		return models.Region{}, fmt.Errorf("parse region: %w", err)
	}
	return region, nil
}
