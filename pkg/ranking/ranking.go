package ranking

import (
	"sort"
	"time"

	"github.com/sloscope/server/pkg/ranking/aggregates"
	"github.com/sloscope/server/pkg/slo"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
)

type serviceStats struct {
	name            string
	records         []taggregates.ServiceRecord
	totalRequests   int64
	totalErrors     int64
	avgErrorRate    *float64
	avgResponseTime *float64
	avgP95          *float64
	avgP99          *float64
	maxResponseTime *float64
}

// TopByVolume ranks services by total request volume, descending.
func (s *Service) TopByVolume(limit int) []aggregates.VolumeEntry {
	stats := s.collectStats()
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].totalRequests != stats[j].totalRequests {
			return stats[i].totalRequests > stats[j].totalRequests
		}
		return stats[i].name < stats[j].name
	})
	result := []aggregates.VolumeEntry{}
	for _, entry := range truncate(stats, limit) {
		result = append(result, aggregates.VolumeEntry{
			ServiceName:     entry.name,
			TotalRequests:   entry.totalRequests,
			AvgErrorRate:    entry.avgErrorRate,
			AvgResponseTime: entry.avgResponseTime,
		})
	}
	return result
}

// Slowest ranks services by latency descending, preferring the mean p99
// over the mean response time when percentiles are present.
func (s *Service) Slowest(limit int) []aggregates.SlowEntry {
	stats := s.collectStats()
	sort.SliceStable(stats, func(i, j int) bool {
		ki, kj := latencyKey(stats[i]), latencyKey(stats[j])
		if ki != kj {
			return ki > kj
		}
		return stats[i].name < stats[j].name
	})
	result := []aggregates.SlowEntry{}
	for _, entry := range truncate(stats, limit) {
		target := slo.ResponseTimeTarget(entry.records, s.config)
		met := true
		if key := latencyKey(entry); key > 0 {
			met = key <= target
		}
		result = append(result, aggregates.SlowEntry{
			ServiceName:        entry.name,
			AvgResponseTime:    entry.avgResponseTime,
			ResponseTimeP95:    entry.avgP95,
			ResponseTimeP99:    entry.avgP99,
			MaxResponseTime:    entry.maxResponseTime,
			ResponseTimeTarget: target,
			TotalRequests:      entry.totalRequests,
			SLOMet:             met,
		})
	}
	return result
}

// MostErrorProne ranks services by mean error rate descending. Services
// with a zero or unknown error rate are excluded.
func (s *Service) MostErrorProne(limit int) []aggregates.ErrorProneEntry {
	stats := []serviceStats{}
	for _, entry := range s.collectStats() {
		if entry.avgErrorRate == nil || *entry.avgErrorRate == 0 {
			continue
		}
		stats = append(stats, entry)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if *stats[i].avgErrorRate != *stats[j].avgErrorRate {
			return *stats[i].avgErrorRate > *stats[j].avgErrorRate
		}
		return stats[i].name < stats[j].name
	})
	result := []aggregates.ErrorProneEntry{}
	for _, entry := range truncate(stats, limit) {
		target := slo.ErrorRateTarget(entry.records, s.config)
		result = append(result, aggregates.ErrorProneEntry{
			ServiceName:     entry.name,
			AvgErrorRate:    entry.avgErrorRate,
			TotalErrors:     entry.totalErrors,
			TotalRequests:   entry.totalRequests,
			ErrorRateTarget: target,
			SLOMet:          *entry.avgErrorRate <= target,
		})
	}
	return result
}

// TopErrors ranks error codes by total error count across the whole
// error table.
func (s *Service) TopErrors(limit int) []aggregates.TopError {
	snapshot := s.provider.Snapshot()
	type codeStats struct {
		occurrences  int64
		totalErrors  int64
		responseSum  float64
		responseSeen int64
	}
	byCode := make(map[string]*codeStats)
	for i := range snapshot.ErrorRecords {
		record := snapshot.ErrorRecords[i]
		if record.ErrorCount == 0 {
			continue
		}
		for _, code := range record.ErrorCodes {
			entry, found := byCode[code]
			if !found {
				entry = &codeStats{}
				byCode[code] = entry
			}
			entry.occurrences++
			entry.totalErrors += record.ErrorCount
			if record.ResponseTimeAvg != nil {
				entry.responseSum += *record.ResponseTimeAvg
				entry.responseSeen++
			}
		}
	}
	result := []aggregates.TopError{}
	for code, entry := range byCode {
		top := aggregates.TopError{
			ErrorCode:       code,
			OccurrenceCount: entry.occurrences,
			TotalErrors:     entry.totalErrors,
		}
		if entry.responseSeen > 0 {
			avg := entry.responseSum / float64(entry.responseSeen)
			top.AvgResponseTime = &avg
		}
		result = append(result, top)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TotalErrors != result[j].TotalErrors {
			return result[i].TotalErrors > result[j].TotalErrors
		}
		return result[i].ErrorCode < result[j].ErrorCode
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// HealthOverview counts healthy, degraded and violating services,
// reusing the evaluator and detector verdicts. A service violating its
// SLO is counted as violating even when it also degrades.
func (s *Service) HealthOverview() *aggregates.HealthOverview {
	overview := &aggregates.HealthOverview{}
	slis := s.evaluator.CurrentSLI("")
	degradation := s.detector.Detect(s.config.DegradationWindowMinutes, s.config.DegradationThresholdPercent)
	degrading := make(map[string]struct{})
	for _, entry := range degradation.Degrading {
		degrading[entry.ServiceName] = struct{}{}
	}

	overview.TotalServices = len(slis)
	for _, sli := range slis {
		overview.TotalRequests += sli.TotalRequests
		overview.TotalErrors += sli.TotalErrors
		switch {
		case sli.IsViolating == nil:
			overview.InsufficientServices++
		case *sli.IsViolating:
			overview.ViolatingServices++
		default:
			if _, found := degrading[sli.ServiceName]; found {
				overview.DegradedServices++
			} else {
				overview.HealthyServices++
			}
		}
	}
	if overview.TotalRequests > 0 {
		overview.OverallErrorRate = float64(overview.TotalErrors) / float64(overview.TotalRequests) * 100
	}
	if overview.TotalServices > 0 {
		overview.HealthPercentage = float64(overview.HealthyServices) / float64(overview.TotalServices) * 100
	}
	return overview
}

func (s *Service) collectStats() []serviceStats {
	snapshot := s.provider.Snapshot()
	result := []serviceStats{}
	for _, name := range snapshot.ServiceNames() {
		records := snapshot.ServiceWindow(time.Time{}, time.Time{}, name)
		entry := serviceStats{name: name, records: records}
		for i := range records {
			entry.totalRequests += records[i].TotalCount
			entry.totalErrors += records[i].ErrorCount
			if records[i].ResponseTimeMax != nil {
				if entry.maxResponseTime == nil || *records[i].ResponseTimeMax > *entry.maxResponseTime {
					entry.maxResponseTime = records[i].ResponseTimeMax
				}
			}
		}
		entry.avgErrorRate = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ErrorRate })
		entry.avgResponseTime = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeAvg })
		entry.avgP95 = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeP95 })
		entry.avgP99 = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeP99 })
		result = append(result, entry)
	}
	return result
}

func latencyKey(entry serviceStats) float64 {
	if entry.avgP99 != nil {
		return *entry.avgP99
	}
	if entry.avgResponseTime != nil {
		return *entry.avgResponseTime
	}
	return 0
}

func truncate(stats []serviceStats, limit int) []serviceStats {
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

func meanOf(records []taggregates.ServiceRecord, field func(taggregates.ServiceRecord) *float64) *float64 {
	sum := 0.0
	count := 0
	for i := range records {
		value := field(records[i])
		if value == nil {
			continue
		}
		sum += *value
		count++
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
