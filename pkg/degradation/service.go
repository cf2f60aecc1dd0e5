package degradation

import (
	"log/slog"

	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// SnapshotProvider hands out the current immutable telemetry snapshot.
type SnapshotProvider interface {
	Snapshot() *aggregates.Snapshot
}

// Service detects performance regressions by comparing two adjacent
// time windows. It keeps no state between invocations.
type Service struct {
	logger   *slog.Logger
	provider SnapshotProvider
	config   slo.Configuration
}

func New(logger *slog.Logger, provider SnapshotProvider, config slo.Configuration) *Service {
	return &Service{
		logger:   logger,
		provider: provider,
		config:   config,
	}
}
