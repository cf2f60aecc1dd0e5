package aggregates

// VolumeEntry ranks one service by request volume.
type VolumeEntry struct {
	ServiceName     string   `json:"service_name"`
	TotalRequests   int64    `json:"total_requests"`
	AvgErrorRate    *float64 `json:"avg_error_rate"`
	AvgResponseTime *float64 `json:"avg_response_time"`
}

// SlowEntry ranks one service by latency, preferring the p99 tail when
// the source provides it.
type SlowEntry struct {
	ServiceName        string   `json:"service_name"`
	AvgResponseTime    *float64 `json:"avg_response_time"`
	ResponseTimeP95    *float64 `json:"response_time_p95"`
	ResponseTimeP99    *float64 `json:"response_time_p99"`
	MaxResponseTime    *float64 `json:"max_response_time"`
	ResponseTimeTarget float64  `json:"response_time_target"`
	TotalRequests      int64    `json:"total_requests"`
	SLOMet             bool     `json:"slo_met"`
}

// ErrorProneEntry ranks one service by error rate.
type ErrorProneEntry struct {
	ServiceName     string   `json:"service_name"`
	AvgErrorRate    *float64 `json:"avg_error_rate"`
	TotalErrors     int64    `json:"total_errors"`
	TotalRequests   int64    `json:"total_requests"`
	ErrorRateTarget float64  `json:"error_rate_target"`
	SLOMet          bool     `json:"slo_met"`
}

// TopError is one error code ranked by total frequency.
type TopError struct {
	ErrorCode       string   `json:"error_code"`
	OccurrenceCount int64    `json:"occurrence_count"`
	TotalErrors     int64    `json:"total_errors"`
	AvgResponseTime *float64 `json:"avg_response_time"`
}

// HealthOverview is the system wide health picture. The healthy,
// degrading and violating counts reuse the evaluator and detector
// verdicts rather than recomputing them.
type HealthOverview struct {
	TotalServices        int     `json:"total_services"`
	HealthyServices      int     `json:"healthy_services"`
	DegradedServices     int     `json:"degraded_services"`
	ViolatingServices    int     `json:"violating_services"`
	InsufficientServices int     `json:"insufficient_data_services"`
	TotalRequests        int64   `json:"total_requests"`
	TotalErrors          int64   `json:"total_errors"`
	OverallErrorRate     float64 `json:"overall_error_rate"`
	HealthPercentage     float64 `json:"health_percentage"`
}
