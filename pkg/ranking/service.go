package ranking

import (
	"log/slog"

	daggregates "github.com/sloscope/server/pkg/degradation/aggregates"
	"github.com/sloscope/server/pkg/slo"
	slaggregates "github.com/sloscope/server/pkg/slo/aggregates"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// SnapshotProvider hands out the current immutable telemetry snapshot.
type SnapshotProvider interface {
	Snapshot() *aggregates.Snapshot
}

// Evaluator supplies per-service SLO verdicts for the health overview.
type Evaluator interface {
	CurrentSLI(serviceName string) []slaggregates.ServiceSLI
}

// Detector supplies the degradation verdicts for the health overview.
type Detector interface {
	Detect(windowMinutes int, thresholdPercent float64) *daggregates.Report
}

// Service computes rankings and system wide counts over the current
// snapshot. All ranking ties break by service name ascending.
type Service struct {
	logger    *slog.Logger
	provider  SnapshotProvider
	evaluator Evaluator
	detector  Detector
	config    slo.Configuration
}

func New(logger *slog.Logger, provider SnapshotProvider, evaluator Evaluator, detector Detector, config slo.Configuration) *Service {
	return &Service{
		logger:    logger,
		provider:  provider,
		evaluator: evaluator,
		detector:  detector,
		config:    config,
	}
}
