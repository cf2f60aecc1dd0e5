package slo

import (
	"log/slog"

	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// SnapshotProvider hands out the current immutable telemetry snapshot.
type SnapshotProvider interface {
	Snapshot() *aggregates.Snapshot
}

type Service struct {
	logger   *slog.Logger
	provider SnapshotProvider
	config   Configuration
}

func New(logger *slog.Logger, provider SnapshotProvider, config Configuration) *Service {
	return &Service{
		logger:   logger,
		provider: provider,
		config:   config,
	}
}

// ErrorRateTarget resolves the error rate target for a set of service
// records: the highest per-record target wins, the configured default
// applies when no record carries one.
func ErrorRateTarget(records []aggregates.ServiceRecord, config Configuration) float64 {
	return resolveTarget(records, config.DefaultErrorRateTarget, func(r aggregates.ServiceRecord) *float64 {
		return r.TargetErrorRate
	})
}

// ResponseTimeTarget resolves the response time target in seconds.
func ResponseTimeTarget(records []aggregates.ServiceRecord, config Configuration) float64 {
	return resolveTarget(records, config.DefaultResponseTimeTarget, func(r aggregates.ServiceRecord) *float64 {
		return r.TargetResponseTime
	})
}

// CompliancePercentTarget resolves the SLO compliance percentage target.
func CompliancePercentTarget(records []aggregates.ServiceRecord, config Configuration) float64 {
	return resolveTarget(records, config.DefaultCompliancePercent, func(r aggregates.ServiceRecord) *float64 {
		return r.TargetCompliancePercent
	})
}

func resolveTarget(records []aggregates.ServiceRecord, fallback float64, field func(aggregates.ServiceRecord) *float64) float64 {
	result := fallback
	found := false
	for i := range records {
		value := field(records[i])
		if value == nil {
			continue
		}
		if !found || *value > result {
			result = *value
			found = true
		}
	}
	return result
}
