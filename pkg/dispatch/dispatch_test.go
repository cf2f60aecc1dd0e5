package dispatch_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/sloscope/server/pkg/degradation"
	"github.com/sloscope/server/pkg/dispatch"
	"github.com/sloscope/server/pkg/ranking"
	"github.com/sloscope/server/pkg/slo"
	slaggregates "github.com/sloscope/server/pkg/slo/aggregates"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
	"github.com/sloscope/server/pkg/trend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	snapshot *taggregates.Snapshot
}

func (f *fakeProvider) Snapshot() *taggregates.Snapshot {
	return f.snapshot
}

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T) *dispatch.Service {
	t.Helper()
	records := []taggregates.ServiceRecord{
		{ServiceName: "payments", TotalCount: 100, SuccessCount: 95, ErrorCount: 5, RecordTime: anchor},
		{ServiceName: "search", TotalCount: 50, SuccessCount: 50, RecordTime: anchor},
	}
	errors := []taggregates.ErrorRecord{
		{ErrorCodes: []string{"500"}, ErrorCount: 5, RecordTime: anchor},
	}
	logger := slog.Default()
	config := slo.DefaultConfiguration()
	provider := &fakeProvider{snapshot: taggregates.NewSnapshot("gen", anchor, records, errors)}
	sloService := slo.New(logger, provider, config)
	degradationService := degradation.New(logger, provider, config)
	trendService := trend.New(logger, provider, config)
	rankingService := ranking.New(logger, provider, sloService, degradationService, config)
	dispatcher, err := dispatch.New(logger, sloService, degradationService, trendService, rankingService)
	require.NoError(t, err)
	return dispatcher
}

func TestAllOperationsRegistered(t *testing.T) {
	dispatcher := newDispatcher(t)
	schemas := dispatcher.Schemas()
	require.Len(t, schemas, len(dispatch.Kinds))
	for i, kind := range dispatch.Kinds {
		assert.Equal(t, string(kind), schemas[i].Name)
		assert.NotEmpty(t, schemas[i].Description)
	}
}

func TestExecuteUnknownOperation(t *testing.T) {
	dispatcher := newDispatcher(t)
	_, err := dispatcher.Execute(context.Background(), "does_not_exist", nil)
	require.Error(t, err)
	corbiErr, ok := err.(*er.Error)
	require.True(t, ok)
	assert.Equal(t, er.NotFound, corbiErr.Type)
}

func TestExecuteEnvelope(t *testing.T) {
	dispatcher := newDispatcher(t)
	envelope, err := dispatcher.Execute(context.Background(), "get_slo_violations", nil)
	require.NoError(t, err)
	assert.Equal(t, "get_slo_violations", envelope.Operation)
	_, err = time.Parse(time.RFC3339, envelope.GeneratedAt)
	require.NoError(t, err)
	result, ok := envelope.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, result["count"])
}

func TestExecuteAppliesDefaults(t *testing.T) {
	dispatcher := newDispatcher(t)
	envelope, err := dispatcher.Execute(context.Background(), "get_top_services_by_volume", nil)
	require.NoError(t, err)
	result := envelope.Result.(map[string]any)
	assert.Equal(t, 2, result["count"])
}

func TestExecuteArgumentValidation(t *testing.T) {
	dispatcher := newDispatcher(t)
	cases := []struct {
		name      string
		operation string
		args      map[string]any
	}{
		{
			name:      "unknown argument",
			operation: "get_top_services_by_volume",
			args:      map[string]any{"bogus": 1},
		},
		{
			name:      "missing required argument",
			operation: "get_service_summary",
			args:      map[string]any{},
		},
		{
			name:      "empty required string",
			operation: "get_service_summary",
			args:      map[string]any{"service_name": ""},
		},
		{
			name:      "limit below minimum",
			operation: "get_top_services_by_volume",
			args:      map[string]any{"limit": 0},
		},
		{
			name:      "limit above maximum",
			operation: "get_top_services_by_volume",
			args:      map[string]any{"limit": 101},
		},
		{
			name:      "window above maximum",
			operation: "get_degrading_services",
			args:      map[string]any{"time_window_minutes": 10081},
		},
		{
			name:      "hours above maximum",
			operation: "calculate_error_budget",
			args:      map[string]any{"service_name": "payments", "time_window_hours": 169},
		},
		{
			name:      "fractional integer",
			operation: "get_top_services_by_volume",
			args:      map[string]any{"limit": 2.5},
		},
		{
			name:      "wrong type",
			operation: "get_top_services_by_volume",
			args:      map[string]any{"limit": "ten"},
		},
		{
			name:      "string expected",
			operation: "get_current_sli",
			args:      map[string]any{"service_name": 42},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := dispatcher.Execute(context.Background(), c.operation, c.args)
			require.Error(t, err)
			corbiErr, ok := err.(*er.Error)
			require.True(t, ok)
			assert.Equal(t, er.BadRequest, corbiErr.Type)
		})
	}
}

func TestExecuteAcceptsJSONNumbers(t *testing.T) {
	dispatcher := newDispatcher(t)
	// JSON decoding hands integers over as float64
	envelope, err := dispatcher.Execute(context.Background(), "get_top_services_by_volume",
		map[string]any{"limit": float64(1)})
	require.NoError(t, err)
	result := envelope.Result.(map[string]any)
	assert.Equal(t, 1, result["count"])
}

func TestExecuteServiceSummary(t *testing.T) {
	dispatcher := newDispatcher(t)
	envelope, err := dispatcher.Execute(context.Background(), "get_service_summary",
		map[string]any{"service_name": "payments"})
	require.NoError(t, err)
	summary, ok := envelope.Result.(*slaggregates.ServiceSummary)
	require.True(t, ok)
	assert.Equal(t, "payments", summary.ServiceName)
}

func TestExecutePropagatesNotFound(t *testing.T) {
	dispatcher := newDispatcher(t)
	_, err := dispatcher.Execute(context.Background(), "get_service_summary",
		map[string]any{"service_name": "ghost"})
	require.Error(t, err)
	corbiErr, ok := err.(*er.Error)
	require.True(t, ok)
	assert.Equal(t, er.NotFound, corbiErr.Type)
}

func TestExecuteAllOperationsSucceed(t *testing.T) {
	dispatcher := newDispatcher(t)
	args := map[string]map[string]any{
		"get_service_summary":     {"service_name": "payments"},
		"calculate_error_budget":  {"service_name": "payments"},
		"get_volume_trends":       {"service_name": "payments"},
		"get_historical_patterns": {"service_name": "payments"},
	}
	for _, kind := range dispatch.Kinds {
		envelope, err := dispatcher.Execute(context.Background(), string(kind), args[string(kind)])
		require.NoError(t, err, string(kind))
		assert.Equal(t, string(kind), envelope.Operation)
		assert.NotNil(t, envelope.Result)
	}
}
