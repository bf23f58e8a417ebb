package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marcus/visita/internal/models"
)

const (
	sheetRegions   = "Regions"
	sheetProducts  = "Products"
	sheetStores    = "Stores"
	sheetOrders    = "Orders"
	sheetVisits    = "Visits"
	sheetVisitLogs = "VisitLogs"
)

// ExportExcel writes the snapshot as a workbook with one sheet per
// collection. Array-valued fields are stored as JSON strings in a single
// cell so the round trip stays lossless.
func ExportExcel(w io.Writer, snap *Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	writeSheet(f, sheetRegions, []string{"id", "name"}, len(snap.Regions), func(i int) []any {
		r := snap.Regions[i]
		return []any{r.ID, r.Name}
	})
	writeSheet(f, sheetProducts, []string{"id", "name"}, len(snap.Products), func(i int) []any {
		p := snap.Products[i]
		return []any{p.ID, p.Name}
	})
	writeSheet(f, sheetStores,
		[]string{"id", "name", "region", "seller_name", "address", "phone", "description", "visit_days", "ideal_time", "purchase_prob", "visited", "last_visit"},
		len(snap.Stores), func(i int) []any {
			s := snap.Stores[i]
			lastVisit := ""
			if s.LastVisit != nil {
				lastVisit = s.LastVisit.Format(time.RFC3339)
			}
			return []any{s.ID, s.Name, s.Region, s.SellerName, s.Address, s.Phone, s.Description,
				jsonCell(s.VisitDays), string(s.IdealTime), string(s.PurchaseProb), s.Visited, lastVisit}
		})
	writeSheet(f, sheetOrders, []string{"id", "store_id", "date", "text", "items"}, len(snap.Orders), func(i int) []any {
		o := snap.Orders[i]
		return []any{o.ID, o.StoreID, o.Date, o.Text, jsonCell(o.Items)}
	})
	writeSheet(f, sheetVisits, []string{"id", "store_id", "visit_date", "visit_time", "note", "status"}, len(snap.Visits), func(i int) []any {
		v := snap.Visits[i]
		return []any{v.ID, v.StoreID, v.VisitDate, v.VisitTime, v.Note, string(v.Status)}
	})
	writeSheet(f, sheetVisitLogs, []string{"id", "store_id", "visited_at", "visit_type", "note"}, len(snap.VisitLogs), func(i int) []any {
		l := snap.VisitLogs[i]
		return []any{l.ID, l.StoreID, l.VisitedAt.Format(time.RFC3339), string(l.VisitType), l.Note}
	})

	f.DeleteSheet("Sheet1")
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, headers []string, n int, row func(i int) []any) {
	f.NewSheet(name)
	f.SetSheetRow(name, "A1", &headers)
	for i := 0; i < n; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row(i)
		f.SetSheetRow(name, cell, &values)
	}
}

func jsonCell(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseExcel reads a workbook exported by ExportExcel back into a
// snapshot. Missing sheets yield empty collections rather than an error
// so partial workbooks import cleanly.
func ParseExcel(r io.Reader) (*Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	snap := &Snapshot{}

	for _, row := range sheetRows(f, sheetRegions) {
		snap.Regions = append(snap.Regions, models.Region{
			ID:   cellInt(row, 0),
			Name: cellString(row, 1),
		})
	}
	for _, row := range sheetRows(f, sheetProducts) {
		snap.Products = append(snap.Products, models.Product{
			ID:   cellInt(row, 0),
			Name: cellString(row, 1),
		})
	}
	for _, row := range sheetRows(f, sheetStores) {
		store := models.Store{
			ID:           cellInt(row, 0),
			Name:         cellString(row, 1),
			Region:       cellString(row, 2),
			SellerName:   cellString(row, 3),
			Address:      cellString(row, 4),
			Phone:        cellString(row, 5),
			Description:  cellString(row, 6),
			IdealTime:    models.ParseIdealTime(cellString(row, 8)),
			PurchaseProb: models.ParsePurchaseProb(cellString(row, 9)),
			Visited:      cellBool(row, 10),
		}
		if days := cellString(row, 7); days != "" {
			json.Unmarshal([]byte(days), &store.VisitDays)
		}
		if s := cellString(row, 11); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				store.LastVisit = &t
			}
		}
		snap.Stores = append(snap.Stores, store)
	}
	for _, row := range sheetRows(f, sheetOrders) {
		order := models.Order{
			ID:      cellInt(row, 0),
			StoreID: cellInt(row, 1),
			Date:    cellString(row, 2),
			Text:    cellString(row, 3),
		}
		if items := cellString(row, 4); items != "" {
			json.Unmarshal([]byte(items), &order.Items)
		}
		snap.Orders = append(snap.Orders, order)
	}
	for _, row := range sheetRows(f, sheetVisits) {
		snap.Visits = append(snap.Visits, models.Visit{
			ID:        cellInt(row, 0),
			StoreID:   cellInt(row, 1),
			VisitDate: cellString(row, 2),
			VisitTime: cellString(row, 3),
			Note:      cellString(row, 4),
			Status:    models.VisitStatus(cellString(row, 5)),
		})
	}
	for _, row := range sheetRows(f, sheetVisitLogs) {
		log := models.VisitLog{
			ID:        cellInt(row, 0),
			StoreID:   cellInt(row, 1),
			VisitType: models.ParseVisitType(cellString(row, 3)),
			Note:      cellString(row, 4),
		}
		if s := cellString(row, 2); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				log.VisitedAt = t
			}
		}
		snap.VisitLogs = append(snap.VisitLogs, log)
	}

	return snap, nil
}

// sheetRows returns the data rows of a sheet, skipping the header. A
// missing sheet returns nil.
func sheetRows(f *excelize.File, name string) [][]string {
	rows, err := f.GetRows(name)
	if err != nil || len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func cellString(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func cellInt(row []string, i int) int64 {
	n, _ := strconv.ParseInt(cellString(row, i), 10, 64)
	return n
}

func cellBool(row []string, i int) bool {
	b, _ := strconv.ParseBool(cellString(row, i))
	return b
}

// ExportReport writes a one-sheet workbook of order lines flattened per
// item, joined with the owning store, for handing to the sales office.
func ExportReport(w io.Writer, snap *Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	f.NewSheet(sheet)
	headers := []string{"store", "region", "seller", "date", "product", "count", "note"}
	f.SetSheetRow(sheet, "A1", &headers)

	storesByID := make(map[int64]models.Store, len(snap.Stores))
	for _, s := range snap.Stores {
		storesByID[s.ID] = s
	}

	rowNum := 2
	for _, o := range snap.Orders {
		store := storesByID[o.StoreID]
		if len(o.Items) == 0 {
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			values := []any{store.Name, store.Region, store.SellerName, o.Date, "", 0, o.Text}
			f.SetSheetRow(sheet, cell, &values)
			rowNum++
			continue
		}
		for _, item := range o.Items {
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			values := []any{store.Name, store.Region, store.SellerName, o.Date, item.ProductName, item.Count, o.Text}
			f.SetSheetRow(sheet, cell, &values)
			rowNum++
		}
	}

	f.DeleteSheet("Sheet1")
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
