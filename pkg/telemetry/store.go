package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	er "github.com/mcorbin/corbierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

const maxReportReasons = 50

// Archiver persists a summary of each accepted load generation. The
// in-memory store works without one.
type Archiver interface {
	ArchiveLoad(ctx context.Context, report aggregates.LoadReport) error
}

// Store holds the current telemetry snapshot. Load replaces the whole
// snapshot atomically: readers see either the previous generation or the
// new one, never a mix. Loads are serialized, reads are lock-free once
// the snapshot pointer is taken.
type Store struct {
	logger   *slog.Logger
	archiver Archiver

	loadMutex sync.Mutex
	mutex     sync.RWMutex
	snapshot  *aggregates.Snapshot

	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func NewStore(logger *slog.Logger, registry *prometheus.Registry, archiver Archiver) (*Store, error) {
	accepted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_records_accepted_total",
			Help: "Count the number of telemetry records accepted during loads.",
		},
		[]string{"table"})
	if err := registry.Register(accepted); err != nil {
		return nil, err
	}
	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_records_rejected_total",
			Help: "Count the number of telemetry records rejected during loads.",
		},
		[]string{"table"})
	if err := registry.Register(rejected); err != nil {
		return nil, err
	}
	return &Store{
		logger:   logger,
		archiver: archiver,
		snapshot: aggregates.NewSnapshot(uuid.NewString(), time.Now().UTC(), nil, nil),
		accepted: accepted,
		rejected: rejected,
	}, nil
}

// Snapshot returns the current snapshot. The result is immutable and
// stays consistent for the caller even if a load completes concurrently.
func (s *Store) Snapshot() *aggregates.Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.snapshot
}

// Load parses and validates both raw batches, then swaps the snapshot.
// Rows failing validation are skipped and reported. If no row in either
// batch carries a usable timestamp the load fails and the previous
// snapshot is kept.
func (s *Store) Load(ctx context.Context, serviceRaw []map[string]any, errorRaw []map[string]any) (*aggregates.LoadReport, error) {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()

	report := &aggregates.LoadReport{
		Generation: uuid.NewString(),
		LoadedAt:   time.Now().UTC(),
	}

	services := make([]aggregates.ServiceRecord, 0, len(serviceRaw))
	for i, raw := range serviceRaw {
		record, err := parseServiceRecord(raw)
		if err != nil {
			report.ServiceRejected++
			addReason(report, fmt.Sprintf("service row %d: %s", i, err.Error()))
			continue
		}
		services = append(services, record)
	}
	errors := make([]aggregates.ErrorRecord, 0, len(errorRaw))
	for i, raw := range errorRaw {
		record, err := parseErrorRecord(raw)
		if err != nil {
			report.ErrorRejected++
			addReason(report, fmt.Sprintf("error row %d: %s", i, err.Error()))
			continue
		}
		errors = append(errors, record)
	}
	report.ServiceAccepted = len(services)
	report.ErrorAccepted = len(errors)

	if len(serviceRaw)+len(errorRaw) > 0 && len(services)+len(errors) == 0 {
		s.rejected.With(prometheus.Labels{"table": "service"}).Add(float64(report.ServiceRejected))
		s.rejected.With(prometheus.Labels{"table": "error"}).Add(float64(report.ErrorRejected))
		return report, er.New("no valid record in the batch, keeping the previous snapshot", er.BadRequest, true)
	}

	snapshot := aggregates.NewSnapshot(report.Generation, report.LoadedAt, services, errors)
	s.mutex.Lock()
	s.snapshot = snapshot
	s.mutex.Unlock()

	s.accepted.With(prometheus.Labels{"table": "service"}).Add(float64(report.ServiceAccepted))
	s.accepted.With(prometheus.Labels{"table": "error"}).Add(float64(report.ErrorAccepted))
	s.rejected.With(prometheus.Labels{"table": "service"}).Add(float64(report.ServiceRejected))
	s.rejected.With(prometheus.Labels{"table": "error"}).Add(float64(report.ErrorRejected))

	s.logger.Info(fmt.Sprintf("loaded snapshot %s: %d service records, %d error records, %d rejected",
		report.Generation, report.ServiceAccepted, report.ErrorAccepted,
		report.ServiceRejected+report.ErrorRejected))

	if s.archiver != nil {
		if err := s.archiver.ArchiveLoad(ctx, *report); err != nil {
			s.logger.Error(fmt.Sprintf("fail to archive load %s: %s", report.Generation, err.Error()))
		}
	}
	return report, nil
}

// Clear resets the store to an empty snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()
	snapshot := aggregates.NewSnapshot(uuid.NewString(), time.Now().UTC(), nil, nil)
	s.mutex.Lock()
	s.snapshot = snapshot
	s.mutex.Unlock()
	s.logger.Info("telemetry store cleared")
	return nil
}

func addReason(report *aggregates.LoadReport, reason string) {
	if len(report.Reasons) < maxReportReasons {
		report.Reasons = append(report.Reasons, reason)
	}
}
