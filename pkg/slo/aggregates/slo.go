package aggregates

// Result statuses shared by the SLO operations. InsufficientData is a
// valid result, not an error: the service exists but the window holds no
// requests to judge it on.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Burn rate severities.
const (
	SeverityHealthy   = "healthy"
	SeverityWarning   = "warning"
	SeverityCritical  = "critical"
	SeverityEmergency = "emergency"
)

// ServiceSLI is the current service level indicator state for one
// service. Pointer fields stay null when the window carries no data for
// them.
type ServiceSLI struct {
	ServiceName                 string   `json:"service_name"`
	Status                      string   `json:"status"`
	SLIPercent                  *float64 `json:"sli_percent"`
	SLOTargetPercent            float64  `json:"slo_target_percent"`
	AvgErrorRate                *float64 `json:"avg_error_rate"`
	AvgResponseTime             *float64 `json:"avg_response_time"`
	TotalRequests               int64    `json:"total_requests"`
	TotalErrors                 int64    `json:"total_errors"`
	ErrorRateTarget             float64  `json:"error_rate_target"`
	ResponseTimeTarget          float64  `json:"response_time_target"`
	ErrorSLOMet                 *bool    `json:"error_slo_met"`
	ResponseSLOMet              *bool    `json:"response_slo_met"`
	IsViolating                 *bool    `json:"is_violating"`
	ErrorBudgetRemainingPercent *float64 `json:"error_budget_remaining_percent"`
	BurnRate                    *float64 `json:"burn_rate"`
	LastUpdate                  string   `json:"last_update"`
}

// ErrorBudget reports error budget consumption for one service over a
// time window. A negative consumed percentage means budget surplus: the
// observed compliance sits above the target.
type ErrorBudget struct {
	ServiceName               string   `json:"service_name"`
	Status                    string   `json:"status"`
	TimeWindowHours           int      `json:"time_window_hours"`
	TotalRequests             int64    `json:"total_requests"`
	TotalErrors               int64    `json:"total_errors"`
	CompliancePercentTarget   float64  `json:"compliance_percent_target"`
	ObservedCompliancePercent *float64 `json:"observed_compliance_percent"`
	BudgetConsumedPercent     *float64 `json:"budget_consumed_percent"`
	BudgetRemainingPercent    *float64 `json:"budget_remaining_percent"`
	BurnRatePerHour           *float64 `json:"burn_rate_per_hour"`
	IsViolating               *bool    `json:"is_violating"`
}

// BurnRate reports how fast a service consumes its error budget over a
// short window.
type BurnRate struct {
	ServiceName       string   `json:"service_name"`
	Status            string   `json:"status"`
	TimeWindowMinutes int      `json:"time_window_minutes"`
	ActualErrorRate   *float64 `json:"actual_error_rate"`
	ErrorRateTarget   float64  `json:"error_rate_target"`
	BurnRate          *float64 `json:"burn_rate"`
	Severity          string   `json:"severity"`
	TotalRequests     int64    `json:"total_requests"`
	TotalErrors       int64    `json:"total_errors"`
}

// Violation is one service currently breaking at least one of its
// targets.
type Violation struct {
	ServiceName   string   `json:"service_name"`
	Violations    []string `json:"violations"`
	ErrorRate     *float64 `json:"error_rate"`
	ResponseTime  *float64 `json:"response_time"`
	TotalRequests int64    `json:"total_requests"`
}

// ServiceSummary is the composite health view for one service.
type ServiceSummary struct {
	ServiceName string      `json:"service_name"`
	SLI         ServiceSLI  `json:"sli"`
	ErrorBudget ErrorBudget `json:"error_budget"`
	BurnRate    BurnRate    `json:"burn_rate"`
}
