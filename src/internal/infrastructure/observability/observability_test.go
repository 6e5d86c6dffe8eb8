package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct{ id string }

func (e testEvent) EventID() string       { return e.id }
func (e testEvent) EventType() string     { return "points.credited" }
func (e testEvent) OccurredAt() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
func (e testEvent) AggregateID() string   { return "C1" }

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestNewLogger_Validation(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)

	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vip-points.log")

	logger, err := NewLogger(LogConfig{Level: "info", File: path})
	require.NoError(t, err)
	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	assert.FileExists(t, path)
}

func TestRecorder_LevelsAndMetrics(t *testing.T) {
	// Arrange
	logger, logs := observedLogger()
	metrics := NewMetrics("test")
	recorder := NewRecorder(logger, metrics)

	// Act
	recorder.RecordOperation(context.Background(), shared.Operation{
		Name: "redemption.redeem", CustomerID: "C1", Outcome: "redeemed",
		Fields: map[string]interface{}{"points": 50, "discount_code": "VIP-ABC"},
	})
	recorder.RecordOperation(context.Background(), shared.Operation{
		Name: "redemption.redeem", CustomerID: "C1", Outcome: "settlement_failed",
		Err: errors.New("db down"),
	})
	recorder.RecordOperation(context.Background(), shared.Operation{
		Name: "ledger.reconcile", CustomerID: "C1", Outcome: "drift",
	})

	// Assert
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "VIP-ABC", entries[0].ContextMap()["discount_code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "db down", entries[1].ContextMap()["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("redemption.redeem", "redeemed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("redemption.redeem", "settlement_failed")))
}

func TestRecorder_NilMetrics(t *testing.T) {
	recorder := NewRecorder(nil, nil)

	assert.NotPanics(t, func() {
		recorder.RecordOperation(context.Background(), shared.Operation{Name: "x", Outcome: "y"})
	})
}

func TestEventPublisher_PublishBatch(t *testing.T) {
	logger, logs := observedLogger()
	metrics := NewMetrics("test")
	publisher := NewEventPublisher(logger, metrics)

	err := publisher.PublishBatch(context.Background(), []shared.DomainEvent{testEvent{"e1"}, testEvent{"e2"}})

	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("domain event").Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.events.WithLabelValues("points.credited")))
}

func TestHTTPMiddleware_RecordsRoutePattern(t *testing.T) {
	// Arrange
	logger, logs := observedLogger()
	metrics := NewMetrics("test")
	mw := NewHTTPMiddleware("test", logger, metrics)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/api/customers/{customerId}/points", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers/C1/points", nil))

	// Assert
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.httpRequests.WithLabelValues("/api/customers/{customerId}/points", http.MethodGet, "418")))
	require.Equal(t, 1, logs.FilterMessage("request").Len())
	assert.Equal(t, int64(418), logs.FilterMessage("request").All()[0].ContextMap()["status"])
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics("test")
	metrics.countOperation("ledger.credit", "credited")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_operations_total{operation="ledger.credit",outcome="credited"} 1`))
}
