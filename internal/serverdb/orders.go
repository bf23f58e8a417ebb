package serverdb

import (
	"encoding/json"
	"fmt"

	"github.com/marcus/visita/internal/models"
)

// ListOrders returns every order, newest first.
func (db *ServerDB) ListOrders() ([]models.Order, error) {
	return db.queryOrders(
		`SELECT id, store_id, date, text, items, created_at FROM orders
		 ORDER BY created_at DESC, id DESC`)
}

// UpsertOrder inserts an order, or updates it by id when the id is set.
func (db *ServerDB) UpsertOrder(o models.Order) (*models.Order, error) {
	if o.StoreID == 0 {
		return nil, fmt.Errorf("order store_id is required")
	}
	items := marshalJSON(o.Items)

	if o.ID == 0 {
		res, err := db.conn.Exec(
			`INSERT INTO orders (store_id, date, text, items) VALUES (?, ?, ?, ?)`,
			o.StoreID, o.Date, o.Text, items)
		if err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		o.ID = id
		return &o, nil
	}

	_, err := db.conn.Exec(
		`INSERT INTO orders (id, store_id, date, text, items) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			date = excluded.date,
			text = excluded.text,
			items = excluded.items`,
		o.ID, o.StoreID, o.Date, o.Text, items)
	if err != nil {
		return nil, fmt.Errorf("upsert order %d: %w", o.ID, err)
	}
	return &o, nil
}

// DeleteOrder removes an order.
func (db *ServerDB) DeleteOrder(id int64) error {
	return db.deleteByID("orders", id)
}

func (db *ServerDB) queryOrders(query string, args ...any) ([]models.Order, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var items, created string
		if err := rows.Scan(&o.ID, &o.StoreID, &o.Date, &o.Text, &items, &created); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			o.Items = nil
		}
		o.CreatedAt = mustTime(created)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
