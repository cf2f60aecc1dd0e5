package slo

import (
	"fmt"
	"math"
	"sort"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/sloscope/server/pkg/slo/aggregates"
	taggregates "github.com/sloscope/server/pkg/telemetry/aggregates"
)

// CurrentSLI computes the current service level indicator state per
// service over the whole snapshot. An empty serviceName covers every
// service. Services with zero requests are reported with the
// insufficient_data status and null violation flags.
func (s *Service) CurrentSLI(serviceName string) []aggregates.ServiceSLI {
	snapshot := s.provider.Snapshot()
	names := snapshot.ServiceNames()
	if serviceName != "" {
		names = []string{serviceName}
	}
	result := []aggregates.ServiceSLI{}
	for _, name := range names {
		records := snapshot.ServiceWindow(time.Time{}, time.Time{}, name)
		if len(records) == 0 {
			continue
		}
		result = append(result, s.computeSLI(name, records))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TotalRequests != result[j].TotalRequests {
			return result[i].TotalRequests > result[j].TotalRequests
		}
		return result[i].ServiceName < result[j].ServiceName
	})
	return result
}

func (s *Service) computeSLI(name string, records []taggregates.ServiceRecord) aggregates.ServiceSLI {
	errorTarget := ErrorRateTarget(records, s.config)
	responseTarget := ResponseTimeTarget(records, s.config)
	complianceTarget := CompliancePercentTarget(records, s.config)

	sli := aggregates.ServiceSLI{
		ServiceName:        name,
		Status:             aggregates.StatusOK,
		SLOTargetPercent:   complianceTarget,
		ErrorRateTarget:    errorTarget,
		ResponseTimeTarget: responseTarget,
	}

	var lastUpdate time.Time
	var nonViolating int64
	for i := range records {
		record := records[i]
		sli.TotalRequests += record.TotalCount
		sli.TotalErrors += record.ErrorCount
		if record.RecordTime.After(lastUpdate) {
			lastUpdate = record.RecordTime
		}
		// A row's successes count as non-violating only when the row's
		// latency sits within target. An unknown latency does not
		// penalize the row.
		if record.ResponseTimeAvg == nil || *record.ResponseTimeAvg <= responseTarget {
			nonViolating += record.SuccessCount
		}
	}
	sli.LastUpdate = lastUpdate.UTC().Format(time.RFC3339)
	sli.AvgErrorRate = meanFloat(records, func(r taggregates.ServiceRecord) *float64 { return r.ErrorRate })
	sli.AvgResponseTime = meanFloat(records, func(r taggregates.ServiceRecord) *float64 { return r.ResponseTimeAvg })

	if sli.TotalRequests == 0 {
		sli.Status = aggregates.StatusInsufficientData
		return sli
	}

	percent := float64(nonViolating) / float64(sli.TotalRequests) * 100
	sli.SLIPercent = &percent

	errorRate := observedErrorRate(sli.TotalRequests, sli.TotalErrors, sli.AvgErrorRate)
	errorMet := errorRate <= errorTarget
	sli.ErrorSLOMet = &errorMet
	responseMet := sli.AvgResponseTime == nil || *sli.AvgResponseTime <= responseTarget
	sli.ResponseSLOMet = &responseMet

	consumed, remaining := budgetFromCompliance(complianceTarget, 100-errorRate)
	violating := !errorMet || !responseMet
	if consumed != nil && *consumed >= 100 {
		violating = true
	}
	sli.IsViolating = &violating
	sli.ErrorBudgetRemainingPercent = remaining
	if consumed != nil {
		hours := spanHours(records)
		rate := *consumed / hours
		sli.BurnRate = &rate
	}
	return sli
}

// ErrorBudget computes error budget consumption for one service over the
// trailing window, anchored at the latest record time in the snapshot.
// Consumption is the observed unreliability divided by the allowed
// unreliability: 150% means the budget is exhausted by half again,
// negative values mean surplus.
func (s *Service) ErrorBudget(serviceName string, windowHours int) (*aggregates.ErrorBudget, error) {
	snapshot := s.provider.Snapshot()
	if len(snapshot.ServiceWindow(time.Time{}, time.Time{}, serviceName)) == 0 {
		return nil, er.Newf("service %s not found", er.NotFound, true, serviceName)
	}
	budget := &aggregates.ErrorBudget{
		ServiceName:     serviceName,
		Status:          aggregates.StatusOK,
		TimeWindowHours: windowHours,
	}
	end, ok := snapshot.MaxServiceTime()
	if !ok {
		budget.Status = aggregates.StatusInsufficientData
		return budget, nil
	}
	start := end.Add(-time.Duration(windowHours) * time.Hour)
	records := snapshot.ServiceWindow(start, end, serviceName)

	for i := range records {
		budget.TotalRequests += records[i].TotalCount
		budget.TotalErrors += records[i].ErrorCount
	}
	budget.CompliancePercentTarget = CompliancePercentTarget(records, s.config)
	if budget.TotalRequests == 0 {
		budget.Status = aggregates.StatusInsufficientData
		return budget, nil
	}
	observed := 100 - float64(budget.TotalErrors)/float64(budget.TotalRequests)*100
	budget.ObservedCompliancePercent = &observed
	consumed, remaining := budgetFromCompliance(budget.CompliancePercentTarget, observed)
	budget.BudgetConsumedPercent = consumed
	budget.BudgetRemainingPercent = remaining
	if consumed != nil {
		violating := *consumed >= 100
		budget.IsViolating = &violating
		perHour := *consumed / float64(windowHours)
		budget.BurnRatePerHour = &perHour
	}
	return budget, nil
}

// BurnRate computes the error budget burn rate over a short trailing
// window: the observed error rate divided by the target error rate.
func (s *Service) BurnRate(serviceName string, windowMinutes int) (*aggregates.BurnRate, error) {
	snapshot := s.provider.Snapshot()
	all := snapshot.ServiceWindow(time.Time{}, time.Time{}, serviceName)
	if len(all) == 0 {
		return nil, er.Newf("service %s not found", er.NotFound, true, serviceName)
	}
	burn := &aggregates.BurnRate{
		ServiceName:       serviceName,
		Status:            aggregates.StatusOK,
		TimeWindowMinutes: windowMinutes,
		Severity:          aggregates.SeverityHealthy,
	}
	end, _ := snapshot.MaxServiceTime()
	start := end.Add(-time.Duration(windowMinutes) * time.Minute)
	records := snapshot.ServiceWindow(start, end, serviceName)
	for i := range records {
		burn.TotalRequests += records[i].TotalCount
		burn.TotalErrors += records[i].ErrorCount
	}
	burn.ErrorRateTarget = ErrorRateTarget(records, s.config)
	if burn.TotalRequests == 0 {
		burn.Status = aggregates.StatusInsufficientData
		return burn, nil
	}
	actual := float64(burn.TotalErrors) / float64(burn.TotalRequests) * 100
	burn.ActualErrorRate = &actual
	if burn.ErrorRateTarget > 0 {
		rate := actual / burn.ErrorRateTarget
		burn.BurnRate = &rate
		burn.Severity = s.burnSeverity(rate)
	}
	return burn, nil
}

func (s *Service) burnSeverity(rate float64) string {
	switch {
	case rate < s.config.BurnRateWarning:
		return aggregates.SeverityHealthy
	case rate < s.config.BurnRateCritical:
		return aggregates.SeverityWarning
	case rate < s.config.BurnRateEmergency:
		return aggregates.SeverityCritical
	default:
		return aggregates.SeverityEmergency
	}
}

// Violations lists every service currently breaking at least one of its
// targets, with human readable reasons.
func (s *Service) Violations() []aggregates.Violation {
	result := []aggregates.Violation{}
	for _, sli := range s.CurrentSLI("") {
		if sli.Status != aggregates.StatusOK || sli.IsViolating == nil || !*sli.IsViolating {
			continue
		}
		violation := aggregates.Violation{
			ServiceName:   sli.ServiceName,
			ErrorRate:     sli.AvgErrorRate,
			ResponseTime:  sli.AvgResponseTime,
			TotalRequests: sli.TotalRequests,
		}
		if sli.ErrorSLOMet != nil && !*sli.ErrorSLOMet {
			rate := observedErrorRate(sli.TotalRequests, sli.TotalErrors, sli.AvgErrorRate)
			violation.Violations = append(violation.Violations,
				fmt.Sprintf("error rate %.2f%% exceeds target %.2f%%", rate, sli.ErrorRateTarget))
		}
		if sli.ResponseSLOMet != nil && !*sli.ResponseSLOMet {
			violation.Violations = append(violation.Violations,
				fmt.Sprintf("response time %.3fs exceeds target %.3fs", *sli.AvgResponseTime, sli.ResponseTimeTarget))
		}
		if len(violation.Violations) == 0 {
			violation.Violations = append(violation.Violations, "error budget exhausted")
		}
		result = append(result, violation)
	}
	return result
}

// ServiceSummary builds the composite view for one service: current SLI,
// error budget over 4 hours, burn rate over 30 minutes.
func (s *Service) ServiceSummary(serviceName string) (*aggregates.ServiceSummary, error) {
	slis := s.CurrentSLI(serviceName)
	if len(slis) == 0 {
		return nil, er.Newf("service %s not found", er.NotFound, true, serviceName)
	}
	budget, err := s.ErrorBudget(serviceName, 4)
	if err != nil {
		return nil, err
	}
	burn, err := s.BurnRate(serviceName, 30)
	if err != nil {
		return nil, err
	}
	return &aggregates.ServiceSummary{
		ServiceName: serviceName,
		SLI:         slis[0],
		ErrorBudget: *budget,
		BurnRate:    *burn,
	}, nil
}

// budgetFromCompliance converts target and observed compliance
// percentages into consumed and remaining budget percentages. A target
// of 100% leaves no budget to consume, so both values are undefined.
func budgetFromCompliance(target, observed float64) (*float64, *float64) {
	allowed := 100 - target
	if allowed <= 0 {
		return nil, nil
	}
	consumed := (target - observed) / allowed * 100
	remaining := 100 - consumed
	return &consumed, &remaining
}

func observedErrorRate(totalRequests, totalErrors int64, avgErrorRate *float64) float64 {
	if totalRequests > 0 {
		return float64(totalErrors) / float64(totalRequests) * 100
	}
	if avgErrorRate != nil {
		return *avgErrorRate
	}
	return 0
}

func meanFloat(records []taggregates.ServiceRecord, field func(taggregates.ServiceRecord) *float64) *float64 {
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

func spanHours(records []taggregates.ServiceRecord) float64 {
	var min, max time.Time
	for i := range records {
		t := records[i].RecordTime
		if min.IsZero() || t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	hours := max.Sub(min).Hours()
	return math.Max(hours, 1)
}
