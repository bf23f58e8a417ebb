package serverdb

import (
	"fmt"
	"time"

	"github.com/marcus/visita/internal/models"
)

// Stats summarises the catalog for the management view.
type Stats struct {
	Regions         int64 `json:"regions"`
	Products        int64 `json:"products"`
	Stores          int64 `json:"stores"`
	Orders          int64 `json:"orders"`
	PendingVisits   int64 `json:"pending_visits"`
	VisitLogs       int64 `json:"visit_logs"`
	VisitedThisWeek int64 `json:"visited_this_week"`
}

// GetStats counts each collection, plus the stores visited inside the
// 7-day window.
func (db *ServerDB) GetStats(now time.Time) (*Stats, error) {
	var s Stats
	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM regions`, &s.Regions},
		{`SELECT COUNT(*) FROM products`, &s.Products},
		{`SELECT COUNT(*) FROM stores`, &s.Stores},
		{`SELECT COUNT(*) FROM orders`, &s.Orders},
		{`SELECT COUNT(*) FROM visits WHERE status = 'pending'`, &s.PendingVisits},
		{`SELECT COUNT(*) FROM visit_logs`, &s.VisitLogs},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	cutoff := now.Add(-models.RecentWindow).UTC().Format(time.RFC3339)
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM stores WHERE last_visit >= ?`, cutoff).Scan(&s.VisitedThisWeek); err != nil {
		return nil, fmt.Errorf("stats visited: %w", err)
	}
	return &s, nil
}
