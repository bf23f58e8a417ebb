package serverdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/visita/internal/models"
)

// ListVisitLogs returns every completed contact event, newest first.
func (db *ServerDB) ListVisitLogs() ([]models.VisitLog, error) {
	return db.queryVisitLogs(
		`SELECT id, store_id, visited_at, visit_type, note FROM visit_logs
		 ORDER BY visited_at DESC, id DESC`)
}

// UpsertVisitLog inserts a log, or updates it by id when the id is set.
// Used by the import path; day-keyed dedup belongs to LogVisit.
func (db *ServerDB) UpsertVisitLog(l models.VisitLog) (*models.VisitLog, error) {
	if l.StoreID == 0 {
		return nil, fmt.Errorf("visit log store_id is required")
	}
	if l.VisitedAt.IsZero() {
		return nil, fmt.Errorf("visit log visited_at is required")
	}
	visitedAt := l.VisitedAt.UTC().Format(time.RFC3339)
	visitType := string(models.ParseVisitType(string(l.VisitType)))

	if l.ID == 0 {
		res, err := db.conn.Exec(
			`INSERT INTO visit_logs (store_id, visited_at, visit_type, note) VALUES (?, ?, ?, ?)`,
			l.StoreID, visitedAt, visitType, l.Note)
		if err != nil {
			return nil, fmt.Errorf("insert visit log: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		l.ID = id
		return &l, nil
	}

	_, err := db.conn.Exec(
		`INSERT INTO visit_logs (id, store_id, visited_at, visit_type, note)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			visited_at = excluded.visited_at,
			visit_type = excluded.visit_type,
			note = excluded.note`,
		l.ID, l.StoreID, visitedAt, visitType, l.Note)
	if err != nil {
		return nil, fmt.Errorf("upsert visit log %d: %w", l.ID, err)
	}
	return &l, nil
}

// UpdateVisitLog edits a log's note and timestamp in place.
func (db *ServerDB) UpdateVisitLog(id int64, note string, visitedAt time.Time) error {
	res, err := db.conn.Exec(
		`UPDATE visit_logs SET note = ?, visited_at = ? WHERE id = ?`,
		note, visitedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update visit log %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteVisitLog removes a log.
func (db *ServerDB) DeleteVisitLog(id int64) error {
	return db.deleteByID("visit_logs", id)
}

func (db *ServerDB) queryVisitLogs(query string, args ...any) ([]models.VisitLog, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.VisitLog
	for rows.Next() {
		var l models.VisitLog
		var visitedAt, visitType string
		if err := rows.Scan(&l.ID, &l.StoreID, &visitedAt, &visitType, &l.Note); err != nil {
			return nil, fmt.Errorf("scan visit log: %w", err)
		}
		l.VisitedAt = mustTime(visitedAt)
		l.VisitType = models.ParseVisitType(visitType)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
