package aggregates

// Degradation severities, tiered on the magnitude of the largest
// worsening change relative to the threshold.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// MetricChange compares one metric between the baseline and recent
// windows. ChangePercent is null when the comparison is undefined: a
// zero or missing baseline never produces an infinite change.
type MetricChange struct {
	Recent        *float64 `json:"recent"`
	Baseline      *float64 `json:"baseline"`
	ChangePercent *float64 `json:"change_percent"`
}

// DegradingService is one service whose recent window regressed beyond
// the threshold on at least one tracked metric.
type DegradingService struct {
	ServiceName         string       `json:"service_name"`
	ErrorRate           MetricChange `json:"error_rate"`
	ResponseTime        MetricChange `json:"response_time"`
	ResponseTimeP95     MetricChange `json:"response_time_p95"`
	ResponseTimeP99     MetricChange `json:"response_time_p99"`
	TotalRequestsRecent int64        `json:"total_requests_recent"`
	TotalErrorsRecent   int64        `json:"total_errors_recent"`
	MaxChangePercent    float64      `json:"max_change_percent"`
	Severity            string       `json:"severity"`
}

// Report is the outcome of one degradation detection pass. Services
// missing data in one of the two windows are listed separately and
// excluded from the comparison.
type Report struct {
	WindowMinutes    int                `json:"time_window_minutes"`
	ThresholdPercent float64            `json:"threshold_percent"`
	BaselineStart    string             `json:"baseline_start"`
	WindowSplit      string             `json:"window_split"`
	RecentEnd        string             `json:"recent_end"`
	Degrading        []DegradingService `json:"degrading_services"`
	NoBaseline       []string           `json:"no_baseline"`
	NoRecent         []string           `json:"no_recent"`
}

// CodeCount is the share of one error code in the window.
type CodeCount struct {
	ErrorCode       string   `json:"error_code"`
	Count           int64    `json:"count"`
	Percentage      float64  `json:"percentage"`
	Occurrences     int64    `json:"occurrences"`
	AvgResponseTime *float64 `json:"avg_response_time"`
}

// CodeDistribution is the error code distribution for a window.
type CodeDistribution struct {
	ServiceName       string      `json:"service_name"`
	TimeWindowMinutes int         `json:"time_window_minutes"`
	TotalErrors       int64       `json:"total_errors"`
	Distribution      []CodeCount `json:"distribution"`
}

// VolumePoint is one raw observation in a volume trend series.
type VolumePoint struct {
	Timestamp     string   `json:"timestamp"`
	TotalRequests int64    `json:"total_requests"`
	Errors        int64    `json:"errors"`
	ErrorRate     *float64 `json:"error_rate"`
	ResponseTime  *float64 `json:"response_time"`
}

// VolumeTrends is the request volume picture for one service over a
// trailing window.
type VolumeTrends struct {
	ServiceName       string        `json:"service_name"`
	TimeWindowMinutes int           `json:"time_window_minutes"`
	TotalVolume       int64         `json:"total_volume"`
	TotalErrors       int64         `json:"total_errors"`
	AvgErrorRate      *float64      `json:"avg_error_rate"`
	AvgResponseTime   *float64      `json:"avg_response_time"`
	TimeSeries        []VolumePoint `json:"time_series"`
}
