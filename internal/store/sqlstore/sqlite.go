package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shaibs3/geoadmin/internal/query"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryDSN is a private in-memory SQLite database
const MemoryDSN = ":memory:"

const foreignKeysPragma = "_pragma=foreign_keys(1)"

// withForeignKeys adds the foreign_keys pragma to dsn so that every
// connection the pool opens enforces references
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, foreignKeysPragma) {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + foreignKeysPragma
	}
	return dsn + "?" + foreignKeysPragma
}

// NewSQLite opens a SQLite store at dsn, enables foreign keys and creates
// its schema
func NewSQLite(ctx context.Context, dsn string, logger *zap.Logger, meter metric.Meter) (*Store, error) {
	liteLogger := logger.Named("sqlite")
	dsn = withForeignKeys(dsn)
	liteLogger.Info("initializing SQLite store", zap.String("dsn", dsn))

	dbConn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a :memory: database lives inside a single connection
	dbConn.SetMaxOpenConns(1)

	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}
	if _, err := dbConn.ExecContext(ctx, SQLiteSchema); err != nil {
		_ = dbConn.Close()
		liteLogger.Error("failed to create initial tables", zap.Error(err))
		return nil, fmt.Errorf("failed to create initial tables: %w", err)
	}

	s, err := newStore(dbConn, query.Question, "SQLiteDB", liteLogger, meter)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteSchema mirrors the Postgres schema produced by the GORM models
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS counties (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    county_id INTEGER REFERENCES counties(id) ON DELETE SET NULL,
    is_county_seat BOOLEAN NOT NULL DEFAULT 0,
    has_county_rights BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cities_county_id ON cities(county_id);
CREATE INDEX IF NOT EXISTS idx_cities_name ON cities(name);

CREATE TABLE IF NOT EXISTS populations (
    city_id INTEGER NOT NULL REFERENCES cities(id),
    year INTEGER NOT NULL,
    female_count INTEGER NOT NULL,
    total_count INTEGER NOT NULL,
    PRIMARY KEY (city_id, year)
);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'registered'
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    body TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_email ON messages(email);
`
