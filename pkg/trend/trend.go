package trend

import (
	"fmt"
	"math"
	"sort"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/trend/aggregates"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
)

const minBuckets = 3

// Predict buckets each service's history into fixed intervals, fits an
// ordinary least squares line per tracked metric, and extrapolates it
// forward. A service is flagged only when a positive slope crosses the
// configured target before the horizon ends: an improving or flat trend
// never produces a risk flag, regardless of current compliance.
func (s *Service) Predict() *aggregates.Report {
	report := &aggregates.Report{
		BucketMinutes:       s.config.TrendBucketMinutes,
		HorizonBuckets:      s.config.TrendHorizonBuckets,
		Predictions:         []aggregates.Prediction{},
		InsufficientHistory: []string{},
	}
	snapshot := s.provider.Snapshot()
	tMax, ok := snapshot.MaxServiceTime()
	if !ok {
		return report
	}
	bucket := time.Duration(s.config.TrendBucketMinutes) * time.Minute

	for _, name := range snapshot.ServiceNames() {
		records := snapshot.ServiceWindow(time.Time{}, time.Time{}, name)
		prediction, enough := s.analyzeService(name, records, tMax, bucket)
		if !enough {
			report.InsufficientHistory = append(report.InsufficientHistory, name)
			continue
		}
		if prediction != nil {
			report.Predictions = append(report.Predictions, *prediction)
		}
	}

	sort.SliceStable(report.Predictions, func(i, j int) bool {
		ri, rj := riskRank(report.Predictions[i].RiskLevel), riskRank(report.Predictions[j].RiskLevel)
		if ri != rj {
			return ri < rj
		}
		bi, bj := soonestBreach(report.Predictions[i]), soonestBreach(report.Predictions[j])
		if bi != bj {
			return bi < bj
		}
		return report.Predictions[i].ServiceName < report.Predictions[j].ServiceName
	})
	s.logger.Debug(fmt.Sprintf("trend pass flagged %d services", len(report.Predictions)))
	return report
}

func (s *Service) analyzeService(name string, records []taggregates.ServiceRecord, tMax time.Time, bucket time.Duration) (*aggregates.Prediction, bool) {
	errorSeries := bucketSeries(records, bucket, func(r taggregates.ServiceRecord) *float64 { return r.ErrorRate })
	responseSeries := bucketSeries(records, bucket, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeAvg })
	buckets := len(errorSeries)
	if len(responseSeries) > buckets {
		buckets = len(responseSeries)
	}
	if len(errorSeries) < minBuckets && len(responseSeries) < minBuckets {
		return nil, false
	}

	errorTrend := s.metricTrend("error_rate", errorSeries, slo.ErrorRateTarget(records, s.config), tMax, bucket)
	responseTrend := s.metricTrend("response_time", responseSeries, slo.ResponseTimeTarget(records, s.config), tMax, bucket)
	if errorTrend.BucketsToBreach == nil && responseTrend.BucketsToBreach == nil {
		return nil, true
	}
	prediction := &aggregates.Prediction{
		ServiceName:  name,
		ErrorRate:    errorTrend,
		ResponseTime: responseTrend,
		Buckets:      buckets,
	}
	prediction.RiskLevel = s.riskLevel(errorTrend, responseTrend)
	return prediction, true
}

// metricTrend fits the line and extrapolates at most HorizonBuckets
// ahead. BucketsToBreach of zero means the current value already sits at
// or past the target while the trend still worsens.
func (s *Service) metricTrend(metric string, series []point, target float64, tMax time.Time, bucket time.Duration) aggregates.MetricTrend {
	result := aggregates.MetricTrend{
		Metric:      metric,
		Status:      aggregates.StatusOK,
		TargetValue: target,
	}
	if len(series) < minBuckets {
		result.Status = aggregates.StatusInsufficientHistory
		return result
	}
	slope, intercept := leastSquares(series)
	result.SlopePerBucket = &slope
	last := series[len(series)-1]
	current := last.y
	result.CurrentValue = &current

	if slope <= 0 {
		return result
	}
	for n := 0; n <= s.config.TrendHorizonBuckets; n++ {
		value := intercept + slope*(last.x+float64(n))
		if value >= target {
			breach := n
			result.BucketsToBreach = &breach
			at := tMax.Add(time.Duration(n) * bucket).UTC().Format(time.RFC3339)
			result.PredictedBreachAt = &at
			break
		}
	}
	return result
}

func (s *Service) riskLevel(trends ...aggregates.MetricTrend) string {
	soonest := math.MaxInt
	for _, trend := range trends {
		if trend.BucketsToBreach != nil && *trend.BucketsToBreach < soonest {
			soonest = *trend.BucketsToBreach
		}
		if trend.CurrentValue != nil && *trend.CurrentValue >= trend.TargetValue && trend.BucketsToBreach != nil {
			return aggregates.RiskCritical
		}
	}
	horizon := s.config.TrendHorizonBuckets
	switch {
	case soonest <= 1:
		return aggregates.RiskCritical
	case soonest <= horizon/4:
		return aggregates.RiskHigh
	case soonest <= horizon/2:
		return aggregates.RiskMedium
	default:
		return aggregates.RiskLow
	}
}

// HistoricalPatterns computes the long range statistical profile of one
// service: metric distributions, traffic shape, and per-hour-of-day
// aggregates.
func (s *Service) HistoricalPatterns(serviceName string) (*aggregates.HistoricalPatterns, error) {
	snapshot := s.provider.Snapshot()
	records := snapshot.ServiceWindow(time.Time{}, time.Time{}, serviceName)
	if len(records) == 0 {
		return nil, er.Newf("service %s not found", er.NotFound, true, serviceName)
	}
	result := &aggregates.HistoricalPatterns{
		ServiceName: serviceName,
		DataPoints:  len(records),
	}
	var min, max time.Time
	var peak, lowest int64
	lowest = math.MaxInt64
	for i := range records {
		record := records[i]
		if min.IsZero() || record.RecordTime.Before(min) {
			min = record.RecordTime
		}
		if record.RecordTime.After(max) {
			max = record.RecordTime
		}
		result.TotalRequests += record.TotalCount
		if record.TotalCount > peak {
			peak = record.TotalCount
		}
		if record.TotalCount < lowest {
			lowest = record.TotalCount
		}
	}
	result.RangeStart = min.UTC().Format(time.RFC3339)
	result.RangeEnd = max.UTC().Format(time.RFC3339)
	result.PeakRequests = peak
	result.MinRequests = lowest
	result.AvgRequestsPerPeriod = float64(result.TotalRequests) / float64(len(records))

	result.ErrorRateStats = computeStats(collect(records, func(r taggregates.ServiceRecord) *float64 { return r.ErrorRate }))
	result.ResponseTimeStats = computeStats(collect(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeAvg }))
	result.HourlyPatterns = hourlyPatterns(records)
	return result, nil
}

type point struct {
	x float64
	y float64
}

// bucketSeries groups records into fixed size buckets keyed on their
// offset from the oldest record, averaging the metric per bucket. Only
// populated buckets appear, keeping their real index so gaps still
// stretch the fitted line.
func bucketSeries(records []taggregates.ServiceRecord, bucket time.Duration, field func(taggregates.ServiceRecord) *float64) []point {
	var origin time.Time
	for i := range records {
		if field(records[i]) == nil {
			continue
		}
		if origin.IsZero() || records[i].RecordTime.Before(origin) {
			origin = records[i].RecordTime
		}
	}
	if origin.IsZero() {
		return nil
	}
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i := range records {
		value := field(records[i])
		if value == nil {
			continue
		}
		idx := int(records[i].RecordTime.Sub(origin) / bucket)
		sums[idx] += *value
		counts[idx]++
	}
	indexes := make([]int, 0, len(sums))
	for idx := range sums {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	series := make([]point, 0, len(indexes))
	for _, idx := range indexes {
		series = append(series, point{x: float64(idx), y: sums[idx] / float64(counts[idx])})
	}
	return series
}

func leastSquares(series []point) (slope, intercept float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range series {
		sumX += p.x
		sumY += p.y
		sumXY += p.x * p.y
		sumXX += p.x * p.x
	}
	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denominator
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func riskRank(level string) int {
	switch level {
	case aggregates.RiskCritical:
		return 0
	case aggregates.RiskHigh:
		return 1
	case aggregates.RiskMedium:
		return 2
	default:
		return 3
	}
}

func soonestBreach(prediction aggregates.Prediction) int {
	soonest := math.MaxInt
	for _, trend := range []aggregates.MetricTrend{prediction.ErrorRate, prediction.ResponseTime} {
		if trend.BucketsToBreach != nil && *trend.BucketsToBreach < soonest {
			soonest = *trend.BucketsToBreach
		}
	}
	return soonest
}

func collect(records []taggregates.ServiceRecord, field func(taggregates.ServiceRecord) *float64) []float64 {
	values := []float64{}
	for i := range records {
		if value := field(records[i]); value != nil {
			values = append(values, *value)
		}
	}
	return values
}

func computeStats(values []float64) aggregates.Stats {
	stats := aggregates.Stats{}
	if len(values) == 0 {
		return stats
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))
	stats.Mean = &mean
	if len(sorted) > 1 {
		variance := 0.0
		for _, v := range sorted {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / float64(len(sorted)-1))
		stats.Std = &std
	}
	stats.Min = &sorted[0]
	stats.Max = &sorted[len(sorted)-1]
	stats.P50 = percentile(sorted, 50)
	stats.P95 = percentile(sorted, 95)
	stats.P99 = percentile(sorted, 99)
	return stats
}

func percentile(sorted []float64, p int) *float64 {
	idx := (len(sorted) - 1) * p / 100
	return &sorted[idx]
}

func hourlyPatterns(records []taggregates.ServiceRecord) []aggregates.HourlyPattern {
	type hourStats struct {
		rateSum, timeSum     float64
		rateCount, timeCount int
		requests             int64
	}
	byHour := make(map[int]*hourStats)
	for i := range records {
		record := records[i]
		hour := record.RecordTime.UTC().Hour()
		entry, found := byHour[hour]
		if !found {
			entry = &hourStats{}
			byHour[hour] = entry
		}
		entry.requests += record.TotalCount
		if record.ErrorRate != nil {
			entry.rateSum += *record.ErrorRate
			entry.rateCount++
		}
		if record.ResponseTimeAvg != nil {
			entry.timeSum += *record.ResponseTimeAvg
			entry.timeCount++
		}
	}
	hours := make([]int, 0, len(byHour))
	for hour := range byHour {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	result := make([]aggregates.HourlyPattern, 0, len(hours))
	for _, hour := range hours {
		entry := byHour[hour]
		pattern := aggregates.HourlyPattern{Hour: hour, TotalRequests: entry.requests}
		if entry.rateCount > 0 {
			avg := entry.rateSum / float64(entry.rateCount)
			pattern.AvgErrorRate = &avg
		}
		if entry.timeCount > 0 {
			avg := entry.timeSum / float64(entry.timeCount)
			pattern.AvgResponseTime = &avg
		}
		result = append(result, pattern)
	}
	return result
}
