package serverdb

import (
	"database/sql"
	"fmt"

	"github.com/marcus/visita/internal/models"
)

// ListRegions returns all regions in creation order.
func (db *ServerDB) ListRegions() ([]models.Region, error) {
	rows, err := db.conn.Query(`SELECT id, name, created_at FROM regions ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r models.Region
		var created string
		if err := rows.Scan(&r.ID, &r.Name, &created); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		r.CreatedAt = mustTime(created)
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// UpsertRegion inserts a region, or updates it by id when the id is set.
func (db *ServerDB) UpsertRegion(r models.Region) (*models.Region, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("region name is required")
	}
	id, err := db.upsertNamed("regions", r.ID, r.Name)
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

// DeleteRegion removes a region. Stores referencing it keep the dangling
// name; deletion is not cascade-protected.
func (db *ServerDB) DeleteRegion(id int64) error {
	return db.deleteByID("regions", id)
}

// ListProducts returns all products in creation order.
func (db *ServerDB) ListProducts() ([]models.Product, error) {
	rows, err := db.conn.Query(`SELECT id, name, created_at FROM products ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &created); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.CreatedAt = mustTime(created)
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpsertProduct inserts a product, or updates it by id when the id is set.
func (db *ServerDB) UpsertProduct(p models.Product) (*models.Product, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	id, err := db.upsertNamed("products", p.ID, p.Name)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// DeleteProduct removes a product. Historic order items keep the
// denormalized product name.
func (db *ServerDB) DeleteProduct(id int64) error {
	return db.deleteByID("products", id)
}

func (db *ServerDB) upsertNamed(table string, id int64, name string) (int64, error) {
	if id == 0 {
		res, err := db.conn.Exec(
			fmt.Sprintf(`INSERT INTO %s (name) VALUES (?)`, table), name)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		return res.LastInsertId()
	}
	_, err := db.conn.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`, table),
		id, name)
	if err != nil {
		return 0, fmt.Errorf("upsert %s %d: %w", table, id, err)
	}
	return id, nil
}

func (db *ServerDB) deleteByID(table string, id int64) error {
	res, err := db.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
