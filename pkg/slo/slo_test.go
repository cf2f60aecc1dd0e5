package slo_test

import (
	"log/slog"
	"testing"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/slo/aggregates"
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

func record(name string, at time.Time, total, errors int64) taggregates.ServiceRecord {
	return taggregates.ServiceRecord{
		ID:           name + at.Format(time.RFC3339),
		ServiceName:  name,
		TotalCount:   total,
		SuccessCount: total - errors,
		ErrorCount:   errors,
		RecordTime:   at,
	}
}

func newService(records ...taggregates.ServiceRecord) *slo.Service {
	snapshot := taggregates.NewSnapshot("gen", anchor, records, nil)
	return slo.New(slog.Default(), &fakeProvider{snapshot: snapshot}, slo.DefaultConfiguration())
}

func TestCurrentSLIOrdering(t *testing.T) {
	service := newService(
		record("beta", anchor, 50, 0),
		record("alpha", anchor, 200, 0),
		record("gamma", anchor, 50, 0),
	)
	slis := service.CurrentSLI("")
	require.Len(t, slis, 3)
	assert.Equal(t, "alpha", slis[0].ServiceName)
	// tie on volume breaks by name ascending
	assert.Equal(t, "beta", slis[1].ServiceName)
	assert.Equal(t, "gamma", slis[2].ServiceName)
}

func TestCurrentSLIComputation(t *testing.T) {
	slow := record("payments", anchor, 100, 2)
	slow.ResponseTimeAvg = f64(3.0)
	fast := record("payments", anchor.Add(-10*time.Minute), 100, 0)
	fast.ResponseTimeAvg = f64(0.2)
	service := newService(slow, fast)

	slis := service.CurrentSLI("payments")
	require.Len(t, slis, 1)
	sli := slis[0]
	assert.Equal(t, aggregates.StatusOK, sli.Status)
	assert.Equal(t, int64(200), sli.TotalRequests)
	assert.Equal(t, int64(2), sli.TotalErrors)
	// the slow row's successes violate the latency target
	require.NotNil(t, sli.SLIPercent)
	assert.InDelta(t, 50.0, *sli.SLIPercent, 0.001)
	require.NotNil(t, sli.AvgResponseTime)
	assert.InDelta(t, 1.6, *sli.AvgResponseTime, 0.001)
	require.NotNil(t, sli.ErrorSLOMet)
	assert.True(t, *sli.ErrorSLOMet)
	require.NotNil(t, sli.ResponseSLOMet)
	assert.False(t, *sli.ResponseSLOMet)
	require.NotNil(t, sli.IsViolating)
	assert.True(t, *sli.IsViolating)
	assert.Equal(t, anchor.Format(time.RFC3339), sli.LastUpdate)
}

func TestCurrentSLIInsufficientData(t *testing.T) {
	service := newService(record("idle", anchor, 0, 0))
	slis := service.CurrentSLI("idle")
	require.Len(t, slis, 1)
	assert.Equal(t, aggregates.StatusInsufficientData, slis[0].Status)
	assert.Nil(t, slis[0].SLIPercent)
	assert.Nil(t, slis[0].IsViolating)
	assert.Nil(t, slis[0].ErrorSLOMet)
}

func TestCurrentSLIRecordTargetsOverrideDefaults(t *testing.T) {
	loose := record("payments", anchor, 100, 3)
	loose.TargetErrorRate = f64(5.0)
	service := newService(loose)

	sli := service.CurrentSLI("payments")[0]
	assert.Equal(t, 5.0, sli.ErrorRateTarget)
	require.NotNil(t, sli.ErrorSLOMet)
	assert.True(t, *sli.ErrorSLOMet)
}

func TestErrorBudgetExhausted(t *testing.T) {
	// 98% target, 95% observed: consumed 150%, remaining -50%
	service := newService(record("payments", anchor, 100, 5))
	budget, err := service.ErrorBudget("payments", 4)
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusOK, budget.Status)
	assert.Equal(t, 98.0, budget.CompliancePercentTarget)
	require.NotNil(t, budget.ObservedCompliancePercent)
	assert.InDelta(t, 95.0, *budget.ObservedCompliancePercent, 0.001)
	require.NotNil(t, budget.BudgetConsumedPercent)
	assert.InDelta(t, 150.0, *budget.BudgetConsumedPercent, 0.001)
	require.NotNil(t, budget.BudgetRemainingPercent)
	assert.InDelta(t, -50.0, *budget.BudgetRemainingPercent, 0.001)
	require.NotNil(t, budget.IsViolating)
	assert.True(t, *budget.IsViolating)
	require.NotNil(t, budget.BurnRatePerHour)
	assert.InDelta(t, 37.5, *budget.BurnRatePerHour, 0.001)
}

func TestErrorBudgetSurplus(t *testing.T) {
	// 98% target, 99% observed: consumed -50%, remaining 150%
	service := newService(record("payments", anchor, 100, 1))
	budget, err := service.ErrorBudget("payments", 4)
	require.NoError(t, err)
	require.NotNil(t, budget.BudgetConsumedPercent)
	assert.InDelta(t, -50.0, *budget.BudgetConsumedPercent, 0.001)
	require.NotNil(t, budget.BudgetRemainingPercent)
	assert.InDelta(t, 150.0, *budget.BudgetRemainingPercent, 0.001)
	require.NotNil(t, budget.IsViolating)
	assert.False(t, *budget.IsViolating)
}

func TestErrorBudgetPerfectTargetIsUndefined(t *testing.T) {
	strict := record("payments", anchor, 100, 0)
	strict.TargetCompliancePercent = f64(100.0)
	service := newService(strict)
	budget, err := service.ErrorBudget("payments", 4)
	require.NoError(t, err)
	assert.Nil(t, budget.BudgetConsumedPercent)
	assert.Nil(t, budget.BudgetRemainingPercent)
	assert.Nil(t, budget.IsViolating)
}

func TestErrorBudgetWindowAnchoredAtLatestRecord(t *testing.T) {
	service := newService(
		record("payments", anchor, 100, 0),
		record("payments", anchor.Add(-30*time.Minute), 100, 10),
		// outside a one hour window ending at the anchor
		record("payments", anchor.Add(-2*time.Hour), 100, 90),
	)
	budget, err := service.ErrorBudget("payments", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), budget.TotalRequests)
	assert.Equal(t, int64(10), budget.TotalErrors)
}

func TestErrorBudgetUnknownService(t *testing.T) {
	service := newService(record("payments", anchor, 100, 0))
	_, err := service.ErrorBudget("ghost", 4)
	require.Error(t, err)
	corbiErr, ok := err.(*er.Error)
	require.True(t, ok)
	assert.Equal(t, er.NotFound, corbiErr.Type)
}

func TestBurnRateSeverities(t *testing.T) {
	cases := []struct {
		name     string
		errors   int64
		total    int64
		rate     float64
		severity string
	}{
		{name: "healthy", errors: 0, total: 1000, rate: 0, severity: aggregates.SeverityHealthy},
		{name: "warning", errors: 15, total: 1000, rate: 1.5, severity: aggregates.SeverityWarning},
		{name: "critical", errors: 50, total: 1000, rate: 5, severity: aggregates.SeverityCritical},
		{name: "emergency", errors: 150, total: 1000, rate: 15, severity: aggregates.SeverityEmergency},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			service := newService(record("payments", anchor, c.total, c.errors))
			burn, err := service.BurnRate("payments", 30)
			require.NoError(t, err)
			require.NotNil(t, burn.BurnRate)
			assert.InDelta(t, c.rate, *burn.BurnRate, 0.001)
			assert.Equal(t, c.severity, burn.Severity)
		})
	}
}

func TestBurnRateInsufficientData(t *testing.T) {
	service := newService(record("payments", anchor, 0, 0))
	burn, err := service.BurnRate("payments", 30)
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusInsufficientData, burn.Status)
	assert.Nil(t, burn.BurnRate)
	assert.Equal(t, aggregates.SeverityHealthy, burn.Severity)
}

func TestViolations(t *testing.T) {
	bad := record("payments", anchor, 100, 10)
	slowOnly := record("search", anchor, 100, 0)
	slowOnly.ResponseTimeAvg = f64(2.5)
	good := record("auth", anchor, 100, 0)
	service := newService(bad, slowOnly, good)

	violations := service.Violations()
	require.Len(t, violations, 2)
	byName := map[string]aggregates.Violation{}
	for _, v := range violations {
		byName[v.ServiceName] = v
	}
	require.Contains(t, byName, "payments")
	assert.Contains(t, byName["payments"].Violations[0], "error rate")
	require.Contains(t, byName, "search")
	assert.Contains(t, byName["search"].Violations[0], "response time")
	assert.NotContains(t, byName, "auth")
}

func TestServiceSummary(t *testing.T) {
	service := newService(record("payments", anchor, 100, 5))
	summary, err := service.ServiceSummary("payments")
	require.NoError(t, err)
	assert.Equal(t, "payments", summary.ServiceName)
	assert.Equal(t, "payments", summary.SLI.ServiceName)
	assert.Equal(t, 4, summary.ErrorBudget.TimeWindowHours)
	assert.Equal(t, 30, summary.BurnRate.TimeWindowMinutes)

	_, err = service.ServiceSummary("ghost")
	require.Error(t, err)
}
