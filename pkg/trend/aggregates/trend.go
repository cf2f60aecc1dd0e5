package aggregates

// Risk levels, ordered by urgency of the predicted breach.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// Trend statuses.
const (
	StatusOK                  = "ok"
	StatusInsufficientHistory = "insufficient_history"
)

// MetricTrend is the fitted trend for one metric of one service. Slope
// is the ordinary least squares slope per bucket. BucketsToBreach is
// null unless the extrapolated line crosses the target inside the
// horizon with a positive slope.
type MetricTrend struct {
	Metric            string   `json:"metric"`
	Status            string   `json:"status"`
	SlopePerBucket    *float64 `json:"slope_per_bucket"`
	CurrentValue      *float64 `json:"current_value"`
	TargetValue       float64  `json:"target_value"`
	BucketsToBreach   *int     `json:"buckets_to_breach"`
	PredictedBreachAt *string  `json:"predicted_breach_at"`
}

// Prediction flags one service whose extrapolated trend crosses a target
// before the horizon ends.
type Prediction struct {
	ServiceName  string      `json:"service_name"`
	RiskLevel    string      `json:"risk_level"`
	ErrorRate    MetricTrend `json:"error_rate"`
	ResponseTime MetricTrend `json:"response_time"`
	Buckets      int         `json:"buckets"`
}

// Report is the outcome of one prediction pass.
type Report struct {
	BucketMinutes       int          `json:"bucket_minutes"`
	HorizonBuckets      int          `json:"horizon_buckets"`
	Predictions         []Prediction `json:"predictions"`
	InsufficientHistory []string     `json:"insufficient_history"`
}

// Stats is a distribution summary for one metric.
type Stats struct {
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	P50  *float64 `json:"p50"`
	P95  *float64 `json:"p95"`
	P99  *float64 `json:"p99"`
}

// HourlyPattern is the aggregate behavior of a service for one hour of
// the day.
type HourlyPattern struct {
	Hour            int      `json:"hour"`
	AvgErrorRate    *float64 `json:"avg_error_rate"`
	AvgResponseTime *float64 `json:"avg_response_time"`
	TotalRequests   int64    `json:"total_requests"`
}

// HistoricalPatterns is the long range statistical profile of one
// service.
type HistoricalPatterns struct {
	ServiceName          string          `json:"service_name"`
	DataPoints           int             `json:"data_points"`
	RangeStart           string          `json:"range_start"`
	RangeEnd             string          `json:"range_end"`
	ErrorRateStats       Stats           `json:"error_rate_stats"`
	ResponseTimeStats    Stats           `json:"response_time_stats"`
	TotalRequests        int64           `json:"total_requests"`
	AvgRequestsPerPeriod float64         `json:"avg_requests_per_period"`
	PeakRequests         int64           `json:"peak_requests"`
	MinRequests          int64           `json:"min_requests"`
	HourlyPatterns       []HourlyPattern `json:"hourly_patterns"`
}
