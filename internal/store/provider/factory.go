package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/shaibs3/geoadmin/internal/store/sqlstore"
	"github.com/shaibs3/geoadmin/internal/telemetry"
	"go.uber.org/zap"
)

// ProviderFactory defines the interface for creating store providers
type ProviderFactory interface {
	CreateProvider(ctx context.Context, configJSON string) (store.Provider, error)
}

// DbProviderFactory creates store providers from a JSON configuration
type DbProviderFactory struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

func NewDbProviderFactory(logger *zap.Logger, tel *telemetry.Telemetry) *DbProviderFactory {
	return &DbProviderFactory{
		logger:    logger.Named("factory"),
		telemetry: tel,
	}
}

// MemoryConfig is the configuration used when none is given
func MemoryConfig() string {
	b, _ := json.Marshal(store.DbProviderConfig{
		DbType:       store.DbTypeMemory,
		ExtraDetails: map[string]interface{}{},
	})
	return string(b)
}

func (f *DbProviderFactory) CreateProvider(ctx context.Context, configJSON string) (store.Provider, error) {
	if configJSON == "" {
		configJSON = MemoryConfig()
	}

	var config store.DbProviderConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse database configuration JSON: %w", err)
	}

	f.logger.Info("creating database provider", zap.String("db_type", config.DbType.String()))

	if !config.DbType.IsValid() {
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}

	meter := telemetry.MeterOrNoop(f.telemetry)
	switch config.DbType {
	case store.DbTypePostgres:
		connStr := config.String("conn_str")
		if connStr == "" {
			return nil, fmt.Errorf("conn_str is required for Postgres provider")
		}
		return sqlstore.NewPostgres(ctx, connStr, f.logger, meter)
	case store.DbTypeSQLite:
		path := config.String("path")
		if path == "" {
			return nil, fmt.Errorf("path is required for SQLite provider")
		}
		return sqlstore.NewSQLite(ctx, path, f.logger, meter)
	case store.DbTypeMemory:
		f.logger.Info("using in-memory SQLite store; data is lost on exit")
		return sqlstore.NewSQLite(ctx, sqlstore.MemoryDSN, f.logger, meter)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}
}
