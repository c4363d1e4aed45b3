package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the leads table when it does not exist yet, so an
// empty database behaves like an empty store.
func EnsureSchema(db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS leads (
        lead_id           TEXT PRIMARY KEY,
        name              TEXT NOT NULL DEFAULT '',
        age               TEXT NOT NULL DEFAULT '',
        country           TEXT NOT NULL DEFAULT '',
        interest          TEXT NOT NULL DEFAULT '',
        status            TEXT NOT NULL DEFAULT '',
        last_agent_msg_ts TEXT NOT NULL DEFAULT '',
        follow_up_sent    TEXT NOT NULL DEFAULT 'false',
        created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to ensure leads schema: %w", err)
	}
	return nil
}
