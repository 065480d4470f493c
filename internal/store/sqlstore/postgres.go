package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shaibs3/geoadmin/internal/query"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgres opens a Postgres store and migrates its schema
func NewPostgres(ctx context.Context, connStr string, logger *zap.Logger, meter metric.Meter) (*Store, error) {
	pgLogger := logger.Named("postgres")
	pgLogger.Info("initializing Postgres store")

	dbConn, err := sql.Open("postgres", connStr)
	if err != nil {
		pgLogger.Error("failed to open Postgres connection", zap.Error(err))
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	dbConn.SetMaxOpenConns(20)
	dbConn.SetMaxIdleConns(5)
	dbConn.SetConnMaxIdleTime(5 * time.Minute)

	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		pgLogger.Error("failed to ping Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	if err := migratePostgres(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		pgLogger.Error("failed to migrate schema", zap.Error(err))
		return nil, err
	}

	s, err := newStore(dbConn, query.Dollar, "PostgresDB", pgLogger, meter)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	pgLogger.Info("Postgres store initialized successfully")
	return s, nil
}

// migratePostgres creates the tables through GORM on the already open pool
func migratePostgres(ctx context.Context, dbConn *sql.DB) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn}), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return fmt.Errorf("failed to open GORM connection: %w", err)
	}
	if err := gormDB.WithContext(ctx).AutoMigrate(migrationModels()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}
