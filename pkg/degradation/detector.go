package degradation

import (
	"fmt"
	"sort"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/sloscope/server/pkg/degradation/aggregates"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
)

type windowStats struct {
	errorRate       *float64
	responseTime    *float64
	responseTimeP95 *float64
	responseTimeP99 *float64
	totalRequests   int64
	totalErrors     int64
}

// Detect compares the recent window (t_max - W, t_max] against the
// adjacent baseline window (t_max - 2W, t_max - W] per service. A
// service regressing beyond the threshold on any tracked metric is
// flagged; a service missing data in either window is excluded from the
// comparison and reported separately.
func (s *Service) Detect(windowMinutes int, thresholdPercent float64) *aggregates.Report {
	if windowMinutes <= 0 {
		windowMinutes = s.config.DegradationWindowMinutes
	}
	if thresholdPercent <= 0 {
		thresholdPercent = s.config.DegradationThresholdPercent
	}
	report := &aggregates.Report{
		WindowMinutes:    windowMinutes,
		ThresholdPercent: thresholdPercent,
		Degrading:        []aggregates.DegradingService{},
		NoBaseline:       []string{},
		NoRecent:         []string{},
	}
	snapshot := s.provider.Snapshot()
	tMax, ok := snapshot.MaxServiceTime()
	if !ok {
		return report
	}
	window := time.Duration(windowMinutes) * time.Minute
	split := tMax.Add(-window)
	baselineStart := split.Add(-window)
	report.BaselineStart = baselineStart.UTC().Format(time.RFC3339)
	report.WindowSplit = split.UTC().Format(time.RFC3339)
	report.RecentEnd = tMax.UTC().Format(time.RFC3339)

	for _, name := range snapshot.ServiceNames() {
		recentRecords := snapshot.ServiceWindow(split, tMax, name)
		baselineRecords := snapshot.ServiceWindow(baselineStart, split, name)
		if len(baselineRecords) == 0 && len(recentRecords) == 0 {
			continue
		}
		if len(baselineRecords) == 0 {
			report.NoBaseline = append(report.NoBaseline, name)
			continue
		}
		if len(recentRecords) == 0 {
			report.NoRecent = append(report.NoRecent, name)
			continue
		}
		recent := computeWindowStats(recentRecords)
		baseline := computeWindowStats(baselineRecords)

		service := aggregates.DegradingService{
			ServiceName:         name,
			ErrorRate:           metricChange(baseline.errorRate, recent.errorRate),
			ResponseTime:        metricChange(baseline.responseTime, recent.responseTime),
			ResponseTimeP95:     metricChange(baseline.responseTimeP95, recent.responseTimeP95),
			ResponseTimeP99:     metricChange(baseline.responseTimeP99, recent.responseTimeP99),
			TotalRequestsRecent: recent.totalRequests,
			TotalErrorsRecent:   recent.totalErrors,
		}
		max, degrading := worstChange(service, thresholdPercent)
		if !degrading {
			continue
		}
		service.MaxChangePercent = max
		service.Severity = aggregates.SeverityWarning
		if max >= thresholdPercent*s.config.DegradationCriticalMultiplier {
			service.Severity = aggregates.SeverityCritical
		}
		report.Degrading = append(report.Degrading, service)
	}

	sort.SliceStable(report.Degrading, func(i, j int) bool {
		if report.Degrading[i].MaxChangePercent != report.Degrading[j].MaxChangePercent {
			return report.Degrading[i].MaxChangePercent > report.Degrading[j].MaxChangePercent
		}
		return report.Degrading[i].ServiceName < report.Degrading[j].ServiceName
	})
	s.logger.Debug(fmt.Sprintf("degradation pass found %d degrading services over %d minutes",
		len(report.Degrading), windowMinutes))
	return report
}

// ErrorCodeDistribution aggregates the error codes observed in the
// trailing window, anchored at the latest error record time. An empty
// serviceName covers every service; otherwise error records are matched
// through the service's transaction identifiers.
func (s *Service) ErrorCodeDistribution(serviceName string, windowMinutes int) *aggregates.CodeDistribution {
	result := &aggregates.CodeDistribution{
		ServiceName:       serviceName,
		TimeWindowMinutes: windowMinutes,
		Distribution:      []aggregates.CodeCount{},
	}
	if serviceName == "" {
		result.ServiceName = "all_services"
	}
	snapshot := s.provider.Snapshot()
	tMax, ok := snapshot.MaxErrorTime()
	if !ok {
		return result
	}
	start := tMax.Add(-time.Duration(windowMinutes) * time.Minute)
	records := snapshot.ErrorWindow(start, tMax)

	var transactionIDs map[string]struct{}
	if serviceName != "" {
		transactionIDs = make(map[string]struct{})
		for _, record := range snapshot.ServiceWindow(time.Time{}, time.Time{}, serviceName) {
			if record.SID != "" {
				transactionIDs[record.SID] = struct{}{}
			}
		}
	}

	type codeStats struct {
		count        int64
		occurrences  int64
		responseSum  float64
		responseSeen int64
	}
	stats := make(map[string]*codeStats)
	for i := range records {
		record := records[i]
		if transactionIDs != nil {
			if _, found := transactionIDs[record.TransactionID]; !found {
				continue
			}
		}
		for _, code := range record.ErrorCodes {
			entry, found := stats[code]
			if !found {
				entry = &codeStats{}
				stats[code] = entry
			}
			entry.count += record.ErrorCount
			entry.occurrences++
			if record.ResponseTimeAvg != nil {
				entry.responseSum += *record.ResponseTimeAvg
				entry.responseSeen++
			}
			result.TotalErrors += record.ErrorCount
		}
	}

	for code, entry := range stats {
		count := aggregates.CodeCount{
			ErrorCode:   code,
			Count:       entry.count,
			Occurrences: entry.occurrences,
		}
		if result.TotalErrors > 0 {
			count.Percentage = float64(entry.count) / float64(result.TotalErrors) * 100
		}
		if entry.responseSeen > 0 {
			avg := entry.responseSum / float64(entry.responseSeen)
			count.AvgResponseTime = &avg
		}
		result.Distribution = append(result.Distribution, count)
	}
	sort.SliceStable(result.Distribution, func(i, j int) bool {
		if result.Distribution[i].Count != result.Distribution[j].Count {
			return result.Distribution[i].Count > result.Distribution[j].Count
		}
		return result.Distribution[i].ErrorCode < result.Distribution[j].ErrorCode
	})
	return result
}

// VolumeTrends returns the raw request volume series for one service
// over the trailing window, oldest first.
func (s *Service) VolumeTrends(serviceName string, windowMinutes int) (*aggregates.VolumeTrends, error) {
	snapshot := s.provider.Snapshot()
	if len(snapshot.ServiceWindow(time.Time{}, time.Time{}, serviceName)) == 0 {
		return nil, er.Newf("service %s not found", er.NotFound, true, serviceName)
	}
	result := &aggregates.VolumeTrends{
		ServiceName:       serviceName,
		TimeWindowMinutes: windowMinutes,
		TimeSeries:        []aggregates.VolumePoint{},
	}
	tMax, _ := snapshot.MaxServiceTime()
	start := tMax.Add(-time.Duration(windowMinutes) * time.Minute)
	records := snapshot.ServiceWindow(start, tMax, serviceName)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordTime.Before(records[j].RecordTime)
	})

	var rateSum, timeSum float64
	var rateSeen, timeSeen int64
	for i := range records {
		record := records[i]
		result.TotalVolume += record.TotalCount
		result.TotalErrors += record.ErrorCount
		if record.ErrorRate != nil {
			rateSum += *record.ErrorRate
			rateSeen++
		}
		if record.ResponseTimeAvg != nil {
			timeSum += *record.ResponseTimeAvg
			timeSeen++
		}
		result.TimeSeries = append(result.TimeSeries, aggregates.VolumePoint{
			Timestamp:     record.RecordTime.UTC().Format(time.RFC3339),
			TotalRequests: record.TotalCount,
			Errors:        record.ErrorCount,
			ErrorRate:     record.ErrorRate,
			ResponseTime:  record.ResponseTimeAvg,
		})
	}
	if rateSeen > 0 {
		avg := rateSum / float64(rateSeen)
		result.AvgErrorRate = &avg
	}
	if timeSeen > 0 {
		avg := timeSum / float64(timeSeen)
		result.AvgResponseTime = &avg
	}
	return result, nil
}

func computeWindowStats(records []taggregates.ServiceRecord) windowStats {
	stats := windowStats{}
	stats.errorRate = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ErrorRate })
	stats.responseTime = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeAvg })
	stats.responseTimeP95 = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeP95 })
	stats.responseTimeP99 = meanOf(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeP99 })
	for i := range records {
		stats.totalRequests += records[i].TotalCount
		stats.totalErrors += records[i].ErrorCount
	}
	return stats
}

// metricChange computes the percent change between the two windows. A
// missing value on either side, or a baseline of exactly zero, leaves
// the change undefined.
func metricChange(baseline, recent *float64) aggregates.MetricChange {
	change := aggregates.MetricChange{Baseline: baseline, Recent: recent}
	if baseline == nil || recent == nil || *baseline == 0 {
		return change
	}
	percent := (*recent - *baseline) / *baseline * 100
	change.ChangePercent = &percent
	return change
}

// worstChange returns the largest worsening change across tracked
// metrics and whether it crosses the threshold. Only increases count as
// worsening: error rate up, latency up.
func worstChange(service aggregates.DegradingService, threshold float64) (float64, bool) {
	max := 0.0
	found := false
	for _, change := range []aggregates.MetricChange{
		service.ErrorRate, service.ResponseTime, service.ResponseTimeP95, service.ResponseTimeP99,
	} {
		if change.ChangePercent == nil {
			continue
		}
		if *change.ChangePercent > max {
			max = *change.ChangePercent
			found = true
		}
	}
	return max, found && max > threshold
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
