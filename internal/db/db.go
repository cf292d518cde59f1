package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with udahub-specific helpers.
type DB struct {
	*sql.DB
	path     string
	readOnly bool
}

// Open creates or opens a read-write SQLite database at the given path and
// applies the checkpoint schema.
func Open(path string) (*DB, error) {
	return open(path, true)
}

// Create opens a read-write SQLite database without applying any schema.
// Used to build customer stores.
func Create(path string) (*DB, error) {
	return open(path, false)
}

func open(path string, migrate bool) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if migrate {
		// Customer stores stay in rollback-journal mode for read-only opens.
		dsn += "&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if migrate {
		if err := d.migrate(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return d, nil
}

// OpenReadOnly opens an existing SQLite database without write access and
// without running migrations. The file must already exist.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	sqlDB, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: sqlDB, path: path, readOnly: true}, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string {
	return d.path
}

// ReadOnly reports whether the handle was opened with OpenReadOnly.
func (d *DB) ReadOnly() bool {
	return d.readOnly
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// ApplyCustomerSchema creates the customer tables (users, subscriptions,
// reservations). Only used when building demo or test stores.
func (d *DB) ApplyCustomerSchema() error {
	if d.readOnly {
		return fmt.Errorf("database %s is read-only", d.path)
	}
	_, err := d.Exec(CustomerSchema)
	return err
}

// schema holds the tables udahub owns. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    thread_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    ticket_text TEXT NOT NULL,
    stage TEXT NOT NULL,
    complete INTEGER NOT NULL DEFAULT 0,
    state TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS checkpoint_history (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL,
    run_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checkpoint_history_thread ON checkpoint_history(thread_id, created_at);
`

// CustomerSchema is the layout of the external customer store that the
// data gateway reads. udahub never writes to a production store.
const CustomerSchema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL,
    is_blocked INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));

CREATE TABLE IF NOT EXISTS subscriptions (
    subscription_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(user_id),
    plan TEXT NOT NULL,
    status TEXT NOT NULL,
    renewal_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id, renewal_date);

CREATE TABLE IF NOT EXISTS reservations (
    reservation_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(user_id),
    experience_id TEXT NOT NULL,
    status TEXT NOT NULL,
    reserved_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id, reserved_at);
`
