package serverdb

// ServerSchemaVersion is the current server database schema version
const ServerSchemaVersion = 2

const serverSchema = `
-- Region catalog
CREATE TABLE IF NOT EXISTS regions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Product catalog
CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Stores
CREATE TABLE IF NOT EXISTS stores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT '',
    seller_name TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    visit_days JSON NOT NULL DEFAULT '[]',
    ideal_time TEXT NOT NULL DEFAULT 'morning',
    purchase_prob TEXT NOT NULL DEFAULT 'low',
    visited INTEGER NOT NULL DEFAULT 0,
    last_visit DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Orders (line items denormalized into a JSON column)
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    store_id INTEGER NOT NULL,
    date TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL DEFAULT '',
    items JSON NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Scheduled appointments
CREATE TABLE IF NOT EXISTS visits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    store_id INTEGER NOT NULL,
    visit_date TEXT NOT NULL,
    visit_time TEXT NOT NULL DEFAULT '',
    note TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'done')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Completed contact events
CREATE TABLE IF NOT EXISTS visit_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    store_id INTEGER NOT NULL,
    visited_at DATETIME NOT NULL,
    visit_type TEXT NOT NULL DEFAULT 'physical',
    note TEXT NOT NULL DEFAULT ''
);

-- Schema info table
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_stores_region ON stores(region);
CREATE INDEX IF NOT EXISTS idx_stores_created ON stores(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_store ON orders(store_id);
CREATE INDEX IF NOT EXISTS idx_visits_store ON visits(store_id);
CREATE INDEX IF NOT EXISTS idx_visit_logs_store ON visit_logs(store_id, visited_at);
`

// Migration defines a server database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the ordered list of schema migrations. Version 1 databases
// predate the visit_type column; toggles against them fail with a
// missing-column error the API surfaces as schema_missing.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "add visit_type to visit_logs",
		SQL: `
			ALTER TABLE visit_logs ADD COLUMN visit_type TEXT NOT NULL DEFAULT 'physical';
		`,
	},
}
