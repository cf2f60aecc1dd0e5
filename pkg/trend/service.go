package trend

import (
	"log/slog"

	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// SnapshotProvider hands out the current immutable telemetry snapshot.
type SnapshotProvider interface {
	Snapshot() *aggregates.Snapshot
}

// Service fits per-service trend lines over bucketed history and
// extrapolates them to flag likely future breaches. The regression is
// purely diagnostic: it never extrapolates past the configured horizon.
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
