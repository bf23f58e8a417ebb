package serverdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/visita/internal/models"
)

const storeColumns = `id, name, region, seller_name, address, phone, description,
	visit_days, ideal_time, purchase_prob, visited, last_visit, created_at`

// ListStores returns one page of stores, newest first, with nested orders
// and visit logs attached. Filters are applied server-side; callers pass
// already-normalized filters (see models.StoreFilters.Normalize).
func (db *ServerDB) ListStores(page, pageSize int, f models.StoreFilters, now time.Time) ([]models.Store, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}

	var where []string
	var args []any

	if f.Region != "" {
		where = append(where, "region = ?")
		args = append(args, f.Region)
	}
	if f.PurchaseProb != "" {
		where = append(where, "purchase_prob = ?")
		args = append(args, f.PurchaseProb)
	}
	if f.Weekday != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(stores.visit_days) WHERE json_each.value = CAST(? AS INTEGER))")
		args = append(args, f.Weekday)
	}
	if f.VisitStatus != "" {
		cutoff := now.Add(-models.RecentWindow).UTC().Format(time.RFC3339)
		if f.VisitStatus == "visited" {
			where = append(where, "last_visit >= ?")
		} else {
			where = append(where, "(last_visit < ? OR last_visit IS NULL)")
		}
		args = append(args, cutoff)
	}

	query := fmt.Sprintf(`SELECT %s FROM stores`, storeColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, page*pageSize)

	stores, err := db.queryStores(query, args...)
	if err != nil {
		return nil, err
	}
	if err := db.attachChildren(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// SearchStores does a free-text lookup over name, address, phone and
// seller name. Unpaginated, capped at 100 results.
func (db *ServerDB) SearchStores(q string) ([]models.Store, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	pattern := "%" + q + "%"
	query := fmt.Sprintf(`SELECT %s FROM stores
		WHERE name LIKE ? OR address LIKE ? OR phone LIKE ? OR seller_name LIKE ?
		ORDER BY created_at DESC, id DESC LIMIT 100`, storeColumns)

	stores, err := db.queryStores(query, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	if err := db.attachChildren(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetStore fetches a single store without nested collections.
func (db *ServerDB) GetStore(id int64) (*models.Store, error) {
	stores, err := db.queryStores(
		fmt.Sprintf(`SELECT %s FROM stores WHERE id = ?`, storeColumns), id)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, sql.ErrNoRows
	}
	return &stores[0], nil
}

// UpsertStore inserts a store, or updates it by id when the id is set.
// Nested collections are ignored; they have their own write paths.
func (db *ServerDB) UpsertStore(s models.Store) (*models.Store, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("store name is required")
	}

	var lastVisit any
	if s.LastVisit != nil {
		lastVisit = s.LastVisit.UTC().Format(time.RFC3339)
	}
	days := marshalJSON(s.VisitDays)

	if s.ID == 0 {
		res, err := db.conn.Exec(
			`INSERT INTO stores (name, region, seller_name, address, phone, description,
				visit_days, ideal_time, purchase_prob, visited, last_visit)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Name, s.Region, s.SellerName, s.Address, s.Phone, s.Description,
			days, string(s.IdealTime), string(s.PurchaseProb), s.Visited, lastVisit)
		if err != nil {
			return nil, fmt.Errorf("insert store: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		s.ID = id
		return &s, nil
	}

	_, err := db.conn.Exec(
		`INSERT INTO stores (id, name, region, seller_name, address, phone, description,
			visit_days, ideal_time, purchase_prob, visited, last_visit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			seller_name = excluded.seller_name,
			address = excluded.address,
			phone = excluded.phone,
			description = excluded.description,
			visit_days = excluded.visit_days,
			ideal_time = excluded.ideal_time,
			purchase_prob = excluded.purchase_prob,
			visited = excluded.visited,
			last_visit = excluded.last_visit`,
		s.ID, s.Name, s.Region, s.SellerName, s.Address, s.Phone, s.Description,
		days, string(s.IdealTime), string(s.PurchaseProb), s.Visited, lastVisit)
	if err != nil {
		return nil, fmt.Errorf("upsert store %d: %w", s.ID, err)
	}
	return &s, nil
}

// DeleteStore removes a store together with its orders, appointments
// and visit history.
func (db *ServerDB) DeleteStore(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete store %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	for _, table := range []string{"orders", "visits", "visit_logs"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE store_id = ?`, table), id); err != nil {
			return fmt.Errorf("delete %s for store %d: %w", table, id, err)
		}
	}

	return tx.Commit()
}

// LogVisit marks a store visited now and finds-or-creates the visit log
// for the caller's local calendar day, given as [dayStart, dayEnd]. A
// repeat contact within the same day and type updates the existing log's
// timestamp rather than inserting a duplicate.
func (db *ServerDB) LogVisit(storeID int64, visitType models.VisitType, now, dayStart, dayEnd time.Time) (*models.VisitLog, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowStr := now.UTC().Format(time.RFC3339)
	res, err := tx.Exec(
		`UPDATE stores SET last_visit = ?, visited = 1 WHERE id = ?`,
		nowStr, storeID)
	if err != nil {
		return nil, fmt.Errorf("mark store visited: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sql.ErrNoRows
	}

	startStr := dayStart.UTC().Format(time.RFC3339)
	endStr := dayEnd.UTC().Format(time.RFC3339)

	log := models.VisitLog{StoreID: storeID, VisitedAt: now.UTC(), VisitType: visitType}

	var existingID int64
	err = tx.QueryRow(
		`SELECT id FROM visit_logs
		 WHERE store_id = ? AND visit_type = ? AND visited_at >= ? AND visited_at <= ?
		 LIMIT 1`,
		storeID, string(visitType), startStr, endStr).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO visit_logs (store_id, visited_at, visit_type) VALUES (?, ?, ?)`,
			storeID, nowStr, string(visitType))
		if err != nil {
			return nil, fmt.Errorf("insert visit log: %w", err)
		}
		log.ID, _ = res.LastInsertId()
	case err != nil:
		return nil, fmt.Errorf("find today's visit log: %w", err)
	default:
		if _, err := tx.Exec(
			`UPDATE visit_logs SET visited_at = ?, visit_type = ? WHERE id = ?`,
			nowStr, string(visitType), existingID); err != nil {
			return nil, fmt.Errorf("update visit log %d: %w", existingID, err)
		}
		log.ID = existingID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &log, nil
}

// ClearVisit reverts a store to unvisited and removes the given type's
// logs within the caller's local day.
func (db *ServerDB) ClearVisit(storeID int64, visitType models.VisitType, dayStart, dayEnd time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE stores SET last_visit = NULL, visited = 0 WHERE id = ?`, storeID)
	if err != nil {
		return fmt.Errorf("clear store visit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.Exec(
		`DELETE FROM visit_logs
		 WHERE store_id = ? AND visit_type = ? AND visited_at >= ? AND visited_at <= ?`,
		storeID, string(visitType),
		dayStart.UTC().Format(time.RFC3339), dayEnd.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("delete today's visit logs: %w", err)
	}

	return tx.Commit()
}

// ResetVisited clears the daily visited flag on every store. Runs at the
// start of a new working day; last_visit history is untouched.
func (db *ServerDB) ResetVisited() (int64, error) {
	res, err := db.conn.Exec(`UPDATE stores SET visited = 0 WHERE visited = 1`)
	if err != nil {
		return 0, fmt.Errorf("reset visited: %w", err)
	}
	return res.RowsAffected()
}

func (db *ServerDB) queryStores(query string, args ...any) ([]models.Store, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	var stores []models.Store
	for rows.Next() {
		var s models.Store
		var days, idealTime, purchaseProb, created string
		var lastVisit sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Region, &s.SellerName, &s.Address,
			&s.Phone, &s.Description, &days, &idealTime, &purchaseProb,
			&s.Visited, &lastVisit, &created); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		if err := json.Unmarshal([]byte(days), &s.VisitDays); err != nil {
			s.VisitDays = nil
		}
		s.IdealTime = models.ParseIdealTime(idealTime)
		s.PurchaseProb = models.ParsePurchaseProb(purchaseProb)
		s.LastVisit, err = scanTime(lastVisit)
		if err != nil {
			return nil, fmt.Errorf("store %d last_visit: %w", s.ID, err)
		}
		s.CreatedAt = mustTime(created)
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// attachChildren loads orders and visit logs for the given stores in two
// batched queries, newest first within each store.
func (db *ServerDB) attachChildren(stores []models.Store) error {
	if len(stores) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Store, len(stores))
	placeholders := make([]string, len(stores))
	ids := make([]any, len(stores))
	for i := range stores {
		byID[stores[i].ID] = &stores[i]
		placeholders[i] = "?"
		ids[i] = stores[i].ID
	}
	in := strings.Join(placeholders, ",")

	orders, err := db.queryOrders(
		fmt.Sprintf(`SELECT id, store_id, date, text, items, created_at FROM orders
			WHERE store_id IN (%s) ORDER BY created_at DESC, id DESC`, in), ids...)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if s := byID[o.StoreID]; s != nil {
			s.Orders = append(s.Orders, o)
		}
	}

	logs, err := db.queryVisitLogs(
		fmt.Sprintf(`SELECT id, store_id, visited_at, visit_type, note FROM visit_logs
			WHERE store_id IN (%s) ORDER BY visited_at DESC, id DESC`, in), ids...)
	if err != nil {
		return err
	}
	for _, l := range logs {
		if s := byID[l.StoreID]; s != nil {
			s.VisitLogs = append(s.VisitLogs, l)
		}
	}

	return nil
}
