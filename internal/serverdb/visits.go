package serverdb

import (
	"database/sql"
	"fmt"

	"github.com/marcus/visita/internal/models"
)

// ListVisits returns all scheduled appointments ordered by visit date,
// each joined with its store's name and region for display.
func (db *ServerDB) ListVisits() ([]models.Visit, error) {
	rows, err := db.conn.Query(
		`SELECT v.id, v.store_id, v.visit_date, v.visit_time, v.note, v.status, v.created_at,
			COALESCE(s.name, ''), COALESCE(s.region, '')
		 FROM visits v LEFT JOIN stores s ON s.id = v.store_id
		 ORDER BY v.visit_date ASC, v.visit_time ASC, v.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		var v models.Visit
		var status, created string
		if err := rows.Scan(&v.ID, &v.StoreID, &v.VisitDate, &v.VisitTime, &v.Note,
			&status, &created, &v.StoreName, &v.StoreRegion); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		v.Status = models.VisitStatus(status)
		v.CreatedAt = mustTime(created)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// UpsertVisit inserts an appointment, or updates it by id when the id is
// set. Status defaults to pending.
func (db *ServerDB) UpsertVisit(v models.Visit) (*models.Visit, error) {
	if v.StoreID == 0 {
		return nil, fmt.Errorf("visit store_id is required")
	}
	if v.VisitDate == "" {
		return nil, fmt.Errorf("visit date is required")
	}
	if v.Status != models.VisitDone {
		v.Status = models.VisitPending
	}

	if v.ID == 0 {
		res, err := db.conn.Exec(
			`INSERT INTO visits (store_id, visit_date, visit_time, note, status)
			 VALUES (?, ?, ?, ?, ?)`,
			v.StoreID, v.VisitDate, v.VisitTime, v.Note, string(v.Status))
		if err != nil {
			return nil, fmt.Errorf("insert visit: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		v.ID = id
		return &v, nil
	}

	_, err := db.conn.Exec(
		`INSERT INTO visits (id, store_id, visit_date, visit_time, note, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			visit_date = excluded.visit_date,
			visit_time = excluded.visit_time,
			note = excluded.note,
			status = excluded.status`,
		v.ID, v.StoreID, v.VisitDate, v.VisitTime, v.Note, string(v.Status))
	if err != nil {
		return nil, fmt.Errorf("upsert visit %d: %w", v.ID, err)
	}
	return &v, nil
}

// UpdateVisitStatus flips an appointment between pending and done.
func (db *ServerDB) UpdateVisitStatus(id int64, status models.VisitStatus) error {
	if status != models.VisitPending && status != models.VisitDone {
		return fmt.Errorf("invalid visit status %q", status)
	}
	res, err := db.conn.Exec(`UPDATE visits SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update visit %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteVisit removes an appointment.
func (db *ServerDB) DeleteVisit(id int64) error {
	return db.deleteByID("visits", id)
}
