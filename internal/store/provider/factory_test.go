package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/shaibs3/geoadmin/internal/store/sqlstore"
	"github.com/shaibs3/geoadmin/internal/telemetry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDbProviderFactory_CreateProvider_Memory(t *testing.T) {
	logger := zap.NewNop()
	tel, err := telemetry.NewTelemetry(logger)
	require.NoError(t, err)
	factory := NewDbProviderFactory(logger, tel)

	provider, err := factory.CreateProvider(context.Background(), MemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	_, ok := provider.(*sqlstore.Store)
	require.True(t, ok, "expected *sqlstore.Store, got %T", provider)
	require.NoError(t, provider.Ping(context.Background()))
}

func TestDbProviderFactory_CreateProvider_EmptyConfigDefaultsToMemory(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)
	provider, err := factory.CreateProvider(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, provider.Close())
}

func TestDbProviderFactory_CreateProvider_SQLiteFile(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)
	cfg, _ := json.Marshal(store.DbProviderConfig{
		DbType:       store.DbTypeSQLite,
		ExtraDetails: map[string]interface{}{"path": t.TempDir() + "/geo.db"},
	})
	provider, err := factory.CreateProvider(context.Background(), string(cfg))
	require.NoError(t, err)
	require.NoError(t, provider.Close())
}

func TestDbProviderFactory_CreateProvider_Errors(t *testing.T) {
	factory := NewDbProviderFactory(zap.NewNop(), nil)
	testCases := []struct {
		name   string
		config string
	}{
		{"malformed json", "{"},
		{"unknown type", `{"db_type":"csv"}`},
		{"postgres without conn_str", `{"db_type":"postgres","extra_details":{}}`},
		{"sqlite without path", `{"db_type":"sqlite"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.CreateProvider(context.Background(), tc.config)
			require.Error(t, err)
		})
	}
}
