package aggregates

import "time"

// ServiceRecord is one observation window for one service. Optional
// numeric fields are pointers: nil means the source did not provide the
// value, and it is excluded from aggregates.
type ServiceRecord struct {
	ID                      string
	ServiceName             string
	AppID                   string
	SID                     string
	TotalCount              int64
	SuccessCount            int64
	ErrorCount              int64
	ErrorRate               *float64
	ResponseTimeAvg         *float64
	ResponseTimeMin         *float64
	ResponseTimeMax         *float64
	ResponseTimeP95         *float64
	ResponseTimeP99         *float64
	TargetErrorRate         *float64
	TargetResponseTime      *float64
	TargetCompliancePercent *float64
	RecordTime              time.Time
}

// ErrorRecord is one error-window observation.
type ErrorRecord struct {
	ID                  string
	ApplicationID       string
	ApplicationName     string
	TransactionID       string
	TransactionName     string
	ErrorCodes          []string
	TechnicalErrorCount int64
	BusinessErrorCount  int64
	ErrorCount          int64
	TotalCount          int64
	ResponseTimeAvg     *float64
	ErrorDetails        *string
	RecordTime          time.Time
}

// LoadReport summarizes one ingestion cycle.
type LoadReport struct {
	Generation      string
	LoadedAt        time.Time
	ServiceAccepted int
	ServiceRejected int
	ErrorAccepted   int
	ErrorRejected   int
	Reasons         []string
}
