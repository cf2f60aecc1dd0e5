package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sloscope/server/internal/http/handlers"
	"github.com/sloscope/server/pkg/client"
	"github.com/sloscope/server/pkg/degradation"
	"github.com/sloscope/server/pkg/dispatch"
	"github.com/sloscope/server/pkg/ranking"
	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/telemetry"
	"github.com/sloscope/server/pkg/trend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) (*handlers.Builder, *telemetry.Store) {
	t.Helper()
	logger := slog.Default()
	config := slo.DefaultConfiguration()
	store, err := telemetry.NewStore(logger, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	sloService := slo.New(logger, store, config)
	degradationService := degradation.New(logger, store, config)
	trendService := trend.New(logger, store, config)
	rankingService := ranking.New(logger, store, sloService, degradationService, config)
	dispatcher, err := dispatch.New(logger, sloService, degradationService, trendService, rankingService)
	require.NoError(t, err)
	return handlers.NewBuilder(store, dispatcher), store
}

func TestLoadTelemetry(t *testing.T) {
	builder, store := newBuilder(t)
	body := `{
		"service_records": [
			{"record_time": "2025-06-01T10:00:00Z", "service_name": "payments", "total_count": 100, "success_count": 98, "error_count": 2}
		],
		"error_records": [
			{"record_time": "2025-06-01T10:00:00Z", "errorCodes": ["500"], "error_count": 2}
		]
	}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := builder.LoadTelemetry(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var report client.LoadReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.ServiceRecordsAccepted)
	assert.Equal(t, 1, report.ErrorRecordsAccepted)
	assert.Empty(t, report.Reasons)
	assert.NotEmpty(t, report.Generation)

	assert.Len(t, store.Snapshot().ServiceRecords, 1)
	assert.Len(t, store.Snapshot().ErrorRecords, 1)
}

func TestLoadTelemetryInvalidBatch(t *testing.T) {
	builder, _ := newBuilder(t)
	body := `{"service_records": [{"service_name": "payments"}]}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := builder.LoadTelemetry(e.NewContext(req, rec))
	require.Error(t, err)
}

func TestClearTelemetry(t *testing.T) {
	builder, store := newBuilder(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/telemetry", nil)
	rec := httptest.NewRecorder()

	err := builder.ClearTelemetry(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.Snapshot().ServiceRecords)
}

func TestExecuteOperation(t *testing.T) {
	builder, store := newBuilder(t)
	_, err := store.Load(context.Background(), []map[string]any{
		{"record_time": "2025-06-01T10:00:00Z", "service_name": "payments", "total_count": float64(100), "success_count": float64(98), "error_count": float64(2)},
	}, nil)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations/get_current_sli", nil)
	rec := httptest.NewRecorder()
	ec := e.NewContext(req, rec)
	ec.SetParamNames("name")
	ec.SetParamValues("get_current_sli")

	require.NoError(t, builder.ExecuteOperation(ec))
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Operation   string         `json:"operation"`
		Result      map[string]any `json:"result"`
		GeneratedAt string         `json:"generated_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "get_current_sli", envelope.Operation)
	assert.Equal(t, float64(1), envelope.Result["count"])
	assert.NotEmpty(t, envelope.GeneratedAt)
}

func TestExecuteOperationWithArguments(t *testing.T) {
	builder, _ := newBuilder(t)
	e := echo.New()
	body := `{"limit": 5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations/get_top_errors", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ec := e.NewContext(req, rec)
	ec.SetParamNames("name")
	ec.SetParamValues("get_top_errors")

	require.NoError(t, builder.ExecuteOperation(ec))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteOperationUnknown(t *testing.T) {
	builder, _ := newBuilder(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations/nope", nil)
	rec := httptest.NewRecorder()
	ec := e.NewContext(req, rec)
	ec.SetParamNames("name")
	ec.SetParamValues("nope")

	err := builder.ExecuteOperation(ec)
	require.Error(t, err)
}

func TestListOperations(t *testing.T) {
	builder, _ := newBuilder(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, builder.ListOperations(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Operations []dispatch.Schema `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Operations, len(dispatch.Kinds))
}
