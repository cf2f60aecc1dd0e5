package slo

// Configuration is the process-wide analytics configuration, loaded once
// at startup and immutable afterwards. Targets are defaults: a record
// carrying its own target fields overrides them per service.
type Configuration struct {
	DefaultErrorRateTarget    float64 `yaml:"default-error-rate-target" validate:"gte=0,lte=100"`
	DefaultResponseTimeTarget float64 `yaml:"default-response-time-target" validate:"gte=0"`
	DefaultCompliancePercent  float64 `yaml:"default-compliance-percent" validate:"gte=0,lt=100"`

	DegradationWindowMinutes      int     `yaml:"degradation-window-minutes" validate:"gte=0"`
	DegradationThresholdPercent   float64 `yaml:"degradation-threshold-percent" validate:"gte=0"`
	DegradationCriticalMultiplier float64 `yaml:"degradation-critical-multiplier" validate:"gte=1"`

	TrendBucketMinutes  int `yaml:"trend-bucket-minutes" validate:"gte=0"`
	TrendHorizonBuckets int `yaml:"trend-horizon-buckets" validate:"gte=0"`

	BurnRateWarning   float64 `yaml:"burn-rate-warning" validate:"gte=0"`
	BurnRateCritical  float64 `yaml:"burn-rate-critical" validate:"gte=0"`
	BurnRateEmergency float64 `yaml:"burn-rate-emergency" validate:"gte=0"`
}

// DefaultConfiguration returns the documented defaults: 1% error rate,
// 1s response time, 98% compliance, 30 minutes degradation window with a
// 20% threshold, hourly trend buckets over a 24 bucket horizon.
func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultErrorRateTarget:        1.0,
		DefaultResponseTimeTarget:     1.0,
		DefaultCompliancePercent:      98.0,
		DegradationWindowMinutes:      30,
		DegradationThresholdPercent:   20.0,
		DegradationCriticalMultiplier: 2.0,
		TrendBucketMinutes:            60,
		TrendHorizonBuckets:           24,
		BurnRateWarning:               1.0,
		BurnRateCritical:              2.0,
		BurnRateEmergency:             10.0,
	}
}

// WithDefaults fills zero fields with the documented defaults so a
// partial YAML block stays usable.
func (c Configuration) WithDefaults() Configuration {
	defaults := DefaultConfiguration()
	if c.DefaultErrorRateTarget == 0 {
		c.DefaultErrorRateTarget = defaults.DefaultErrorRateTarget
	}
	if c.DefaultResponseTimeTarget == 0 {
		c.DefaultResponseTimeTarget = defaults.DefaultResponseTimeTarget
	}
	if c.DefaultCompliancePercent == 0 {
		c.DefaultCompliancePercent = defaults.DefaultCompliancePercent
	}
	if c.DegradationWindowMinutes == 0 {
		c.DegradationWindowMinutes = defaults.DegradationWindowMinutes
	}
	if c.DegradationThresholdPercent == 0 {
		c.DegradationThresholdPercent = defaults.DegradationThresholdPercent
	}
	if c.DegradationCriticalMultiplier == 0 {
		c.DegradationCriticalMultiplier = defaults.DegradationCriticalMultiplier
	}
	if c.TrendBucketMinutes == 0 {
		c.TrendBucketMinutes = defaults.TrendBucketMinutes
	}
	if c.TrendHorizonBuckets == 0 {
		c.TrendHorizonBuckets = defaults.TrendHorizonBuckets
	}
	if c.BurnRateWarning == 0 {
		c.BurnRateWarning = defaults.BurnRateWarning
	}
	if c.BurnRateCritical == 0 {
		c.BurnRateCritical = defaults.BurnRateCritical
	}
	if c.BurnRateEmergency == 0 {
		c.BurnRateEmergency = defaults.BurnRateEmergency
	}
	return c
}
