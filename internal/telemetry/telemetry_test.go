package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTelemetry_ExposesMetrics(t *testing.T) {
	tel, err := NewTelemetry(zap.NewNop())
	require.NoError(t, err)

	counter, err := tel.Meter.Int64Counter("test_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	w := httptest.NewRecorder()
	tel.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "test_events_total")
}

func TestNewTelemetry_Twice(t *testing.T) {
	_, err := NewTelemetry(zap.NewNop())
	require.NoError(t, err)
	_, err = NewTelemetry(zap.NewNop())
	require.NoError(t, err, "each instance owns its registry")
}

func TestMeterOrNoop(t *testing.T) {
	require.NotNil(t, MeterOrNoop(nil))
}
