package ranking_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/sloscope/server/pkg/degradation"
	"github.com/sloscope/server/pkg/ranking"
	"github.com/sloscope/server/pkg/slo"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
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

func f64(v float64) *float64 {
	return &v
}

func newService(records []taggregates.ServiceRecord, errors []taggregates.ErrorRecord) *ranking.Service {
	logger := slog.Default()
	config := slo.DefaultConfiguration()
	provider := &fakeProvider{snapshot: taggregates.NewSnapshot("gen", anchor, records, errors)}
	evaluator := slo.New(logger, provider, config)
	detector := degradation.New(logger, provider, config)
	return ranking.New(logger, provider, evaluator, detector, config)
}

func TestTopByVolume(t *testing.T) {
	records := []taggregates.ServiceRecord{
		{ServiceName: "small", TotalCount: 10, RecordTime: anchor},
		{ServiceName: "big", TotalCount: 500, RecordTime: anchor},
		{ServiceName: "tie-b", TotalCount: 100, RecordTime: anchor},
		{ServiceName: "tie-a", TotalCount: 100, RecordTime: anchor},
	}
	entries := newService(records, nil).TopByVolume(3)
	require.Len(t, entries, 3)
	assert.Equal(t, "big", entries[0].ServiceName)
	// ties break by name ascending
	assert.Equal(t, "tie-a", entries[1].ServiceName)
	assert.Equal(t, "tie-b", entries[2].ServiceName)
}

func TestSlowestPrefersP99(t *testing.T) {
	records := []taggregates.ServiceRecord{
		// fast on average but with a bad tail
		{ServiceName: "tail", ResponseTimeAvg: f64(0.2), ResponseTimeP99: f64(4.0), RecordTime: anchor},
		{ServiceName: "steady", ResponseTimeAvg: f64(1.5), RecordTime: anchor},
		{ServiceName: "fast", ResponseTimeAvg: f64(0.1), RecordTime: anchor},
	}
	entries := newService(records, nil).Slowest(10)
	require.Len(t, entries, 3)
	assert.Equal(t, "tail", entries[0].ServiceName)
	assert.False(t, entries[0].SLOMet)
	assert.Equal(t, "steady", entries[1].ServiceName)
	assert.False(t, entries[1].SLOMet)
	assert.Equal(t, "fast", entries[2].ServiceName)
	assert.True(t, entries[2].SLOMet)
}

func TestMostErrorProneExcludesCleanServices(t *testing.T) {
	records := []taggregates.ServiceRecord{
		{ServiceName: "noisy", ErrorRate: f64(8), TotalCount: 100, ErrorCount: 8, RecordTime: anchor},
		{ServiceName: "mild", ErrorRate: f64(0.5), TotalCount: 100, RecordTime: anchor},
		{ServiceName: "clean", ErrorRate: f64(0), TotalCount: 100, RecordTime: anchor},
		{ServiceName: "unknown", TotalCount: 100, RecordTime: anchor},
	}
	entries := newService(records, nil).MostErrorProne(10)
	require.Len(t, entries, 2)
	assert.Equal(t, "noisy", entries[0].ServiceName)
	assert.False(t, entries[0].SLOMet)
	assert.Equal(t, "mild", entries[1].ServiceName)
	assert.True(t, entries[1].SLOMet)
}

func TestTopErrors(t *testing.T) {
	errors := []taggregates.ErrorRecord{
		{ErrorCodes: []string{"500"}, ErrorCount: 6, ResponseTimeAvg: f64(1.0), RecordTime: anchor},
		{ErrorCodes: []string{"500", "TIMEOUT"}, ErrorCount: 2, ResponseTimeAvg: f64(3.0), RecordTime: anchor},
		// zero-count rows carry no observed errors
		{ErrorCodes: []string{"403"}, ErrorCount: 0, RecordTime: anchor},
	}
	top := newService(nil, errors).TopErrors(10)
	require.Len(t, top, 2)
	assert.Equal(t, "500", top[0].ErrorCode)
	assert.Equal(t, int64(8), top[0].TotalErrors)
	assert.Equal(t, int64(2), top[0].OccurrenceCount)
	require.NotNil(t, top[0].AvgResponseTime)
	assert.InDelta(t, 2.0, *top[0].AvgResponseTime, 0.001)
	assert.Equal(t, "TIMEOUT", top[1].ErrorCode)
}

func TestTopErrorsLimit(t *testing.T) {
	errors := []taggregates.ErrorRecord{
		{ErrorCodes: []string{"A"}, ErrorCount: 3, RecordTime: anchor},
		{ErrorCodes: []string{"B"}, ErrorCount: 2, RecordTime: anchor},
		{ErrorCodes: []string{"C"}, ErrorCount: 1, RecordTime: anchor},
	}
	top := newService(nil, errors).TopErrors(2)
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].ErrorCode)
	assert.Equal(t, "B", top[1].ErrorCode)
}

func TestHealthOverview(t *testing.T) {
	records := []taggregates.ServiceRecord{
		// healthy
		{ServiceName: "healthy", TotalCount: 100, SuccessCount: 100, RecordTime: anchor},
		// violating the error rate target
		{ServiceName: "broken", TotalCount: 100, SuccessCount: 90, ErrorCount: 10, RecordTime: anchor},
		// no requests at all
		{ServiceName: "idle", RecordTime: anchor},
		// latency regressing between the two windows, but inside targets
		{ServiceName: "degrading", TotalCount: 100, SuccessCount: 100, ResponseTimeAvg: f64(0.2), RecordTime: anchor.Add(-45 * time.Minute)},
		{ServiceName: "degrading", TotalCount: 100, SuccessCount: 100, ResponseTimeAvg: f64(0.5), RecordTime: anchor},
	}
	overview := newService(records, nil).HealthOverview()
	assert.Equal(t, 4, overview.TotalServices)
	assert.Equal(t, 1, overview.HealthyServices)
	assert.Equal(t, 1, overview.ViolatingServices)
	assert.Equal(t, 1, overview.DegradedServices)
	assert.Equal(t, 1, overview.InsufficientServices)
	assert.Equal(t, int64(400), overview.TotalRequests)
	assert.Equal(t, int64(10), overview.TotalErrors)
	assert.InDelta(t, 2.5, overview.OverallErrorRate, 0.001)
	assert.InDelta(t, 25.0, overview.HealthPercentage, 0.001)
}
