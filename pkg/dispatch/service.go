package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	er "github.com/mcorbin/corbierror"
	daggregates "github.com/sloscope/server/pkg/degradation/aggregates"
	raggregates "github.com/sloscope/server/pkg/ranking/aggregates"
	slaggregates "github.com/sloscope/server/pkg/slo/aggregates"
	taggregates "github.com/sloscope/server/pkg/trend/aggregates"
)

// Kind identifies one callable operation.
type Kind string

const (
	OpGetDegradingServices      Kind = "get_degrading_services"
	OpGetErrorCodeDistribution  Kind = "get_error_code_distribution"
	OpGetCurrentSLI             Kind = "get_current_sli"
	OpPredictIssuesToday        Kind = "predict_issues_today"
	OpGetServiceSummary         Kind = "get_service_summary"
	OpGetSLOViolations          Kind = "get_slo_violations"
	OpCalculateErrorBudget      Kind = "calculate_error_budget"
	OpGetVolumeTrends           Kind = "get_volume_trends"
	OpGetServiceHealthOverview  Kind = "get_service_health_overview"
	OpGetTopServicesByVolume    Kind = "get_top_services_by_volume"
	OpGetSlowestServices        Kind = "get_slowest_services"
	OpGetErrorProneServices     Kind = "get_error_prone_services"
	OpGetTopErrors              Kind = "get_top_errors"
	OpGetHistoricalPatterns     Kind = "get_historical_patterns"
)

// Kinds lists every operation the dispatcher must serve. Construction
// fails if any of them lacks a handler.
var Kinds = []Kind{
	OpGetDegradingServices,
	OpGetErrorCodeDistribution,
	OpGetCurrentSLI,
	OpPredictIssuesToday,
	OpGetServiceSummary,
	OpGetSLOViolations,
	OpCalculateErrorBudget,
	OpGetVolumeTrends,
	OpGetServiceHealthOverview,
	OpGetTopServicesByVolume,
	OpGetSlowestServices,
	OpGetErrorProneServices,
	OpGetTopErrors,
	OpGetHistoricalPatterns,
}

// Parameter types.
const (
	TypeString = "string"
	TypeInt    = "integer"
)

// Param declares one operation parameter. Min and Max bound integer
// parameters; out-of-range values are rejected, never clamped.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
}

// Schema describes one registered operation for discovery by the
// orchestrator.
type Schema struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

// Envelope is the uniform result wrapper. Results only contain JSON
// compatible values: timestamps as RFC3339 strings, unknown numerics as
// nulls.
type Envelope struct {
	Operation   string `json:"operation"`
	Result      any    `json:"result"`
	GeneratedAt string `json:"generated_at"`
}

type handler func(ctx context.Context, args map[string]any) (any, error)

type operation struct {
	schema  Schema
	handler handler
}

// SLOService is the evaluator surface consumed by the dispatcher.
type SLOService interface {
	CurrentSLI(serviceName string) []slaggregates.ServiceSLI
	ErrorBudget(serviceName string, windowHours int) (*slaggregates.ErrorBudget, error)
	Violations() []slaggregates.Violation
	ServiceSummary(serviceName string) (*slaggregates.ServiceSummary, error)
}

// DegradationService is the detector surface consumed by the dispatcher.
type DegradationService interface {
	Detect(windowMinutes int, thresholdPercent float64) *daggregates.Report
	ErrorCodeDistribution(serviceName string, windowMinutes int) *daggregates.CodeDistribution
	VolumeTrends(serviceName string, windowMinutes int) (*daggregates.VolumeTrends, error)
}

// TrendService is the predictor surface consumed by the dispatcher.
type TrendService interface {
	Predict() *taggregates.Report
	HistoricalPatterns(serviceName string) (*taggregates.HistoricalPatterns, error)
}

// RankingService is the ranker surface consumed by the dispatcher.
type RankingService interface {
	TopByVolume(limit int) []raggregates.VolumeEntry
	Slowest(limit int) []raggregates.SlowEntry
	MostErrorProne(limit int) []raggregates.ErrorProneEntry
	TopErrors(limit int) []raggregates.TopError
	HealthOverview() *raggregates.HealthOverview
}

// Service dispatches named operations to the analytics services.
type Service struct {
	logger     *slog.Logger
	operations map[Kind]operation
}

// Execute runs one operation by name. Unknown names and invalid
// arguments fail without side effects; successful results come back in
// the uniform envelope.
func (s *Service) Execute(ctx context.Context, name string, args map[string]any) (*Envelope, error) {
	op, found := s.operations[Kind(name)]
	if !found {
		return nil, er.Newf("unknown operation %s", er.NotFound, true, name)
	}
	validated, err := validateArgs(op.schema, args)
	if err != nil {
		return nil, err
	}
	result, err := op.handler(ctx, validated)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Operation:   name,
		Result:      result,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Schemas lists every registered operation, sorted by registration
// order of Kinds.
func (s *Service) Schemas() []Schema {
	result := make([]Schema, 0, len(s.operations))
	for _, kind := range Kinds {
		result = append(result, s.operations[kind].schema)
	}
	return result
}

func validateArgs(schema Schema, args map[string]any) (map[string]any, error) {
	declared := make(map[string]Param, len(schema.Params))
	for _, param := range schema.Params {
		declared[param.Name] = param
	}
	for name := range args {
		if _, found := declared[name]; !found {
			return nil, er.Newf("unknown argument %s for operation %s", er.BadRequest, true, name, schema.Name)
		}
	}
	validated := make(map[string]any, len(schema.Params))
	for _, param := range schema.Params {
		raw, present := args[param.Name]
		if !present || raw == nil {
			if param.Required {
				return nil, er.Newf("missing required argument %s for operation %s", er.BadRequest, true, param.Name, schema.Name)
			}
			if param.Default != nil {
				validated[param.Name] = param.Default
			}
			continue
		}
		value, err := coerce(param, raw)
		if err != nil {
			return nil, err
		}
		validated[param.Name] = value
	}
	return validated, nil
}

func coerce(param Param, raw any) (any, error) {
	switch param.Type {
	case TypeString:
		value, ok := raw.(string)
		if !ok {
			return nil, er.Newf("argument %s must be a string", er.BadRequest, true, param.Name)
		}
		if value == "" && param.Required {
			return nil, er.Newf("argument %s must not be empty", er.BadRequest, true, param.Name)
		}
		return value, nil
	case TypeInt:
		var value int
		switch v := raw.(type) {
		case int:
			value = v
		case float64:
			if v != math.Trunc(v) {
				return nil, er.Newf("argument %s must be an integer", er.BadRequest, true, param.Name)
			}
			value = int(v)
		default:
			return nil, er.Newf("argument %s must be an integer", er.BadRequest, true, param.Name)
		}
		if param.Min != 0 || param.Max != 0 {
			if value < param.Min || value > param.Max {
				return nil, er.Newf("argument %s must be between %d and %d", er.BadRequest, true, param.Name, param.Min, param.Max)
			}
		}
		return value, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", param.Type)
}

func stringArg(args map[string]any, name string) string {
	value, _ := args[name].(string)
	return value
}

func intArg(args map[string]any, name string) int {
	value, _ := args[name].(int)
	return value
}
