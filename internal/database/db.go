package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the ledger schema if it does not exist yet.
//
// Holdings are append-only: rows are inserted at buy time and the only
// update ever issued is the active -> sold status flip. Transactions
// are immutable. Run locks guard against two overlapping runs of the
// same cycle on the same day.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS holdings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		acquisition_date TEXT NOT NULL,
		acquisition_price REAL,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'sold'))
	);
	CREATE INDEX IF NOT EXISTS idx_holdings_symbol_status ON holdings(symbol, status);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		total_amount REAL NOT NULL,
		executed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol);

	CREATE TABLE IF NOT EXISTS run_locks (
		job TEXT NOT NULL,
		run_date TEXT NOT NULL,
		token TEXT NOT NULL,
		acquired_at TEXT NOT NULL,
		PRIMARY KEY (job, run_date)
	);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
