package dispatch

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	minLimit         = 1
	maxLimit         = 100
	minWindowMinutes = 1
	maxWindowMinutes = 10080
	minWindowHours   = 1
	maxWindowHours   = 168
)

func limitParam() Param {
	return Param{Name: "limit", Type: TypeInt, Default: 10, Min: minLimit, Max: maxLimit}
}

func windowMinutesParam() Param {
	return Param{Name: "time_window_minutes", Type: TypeInt, Default: 30, Min: minWindowMinutes, Max: maxWindowMinutes}
}

func serviceNameParam(required bool) Param {
	return Param{Name: "service_name", Type: TypeString, Required: required}
}

// New builds the dispatcher and registers every operation. It fails if
// a declared operation kind ends up without a handler, so a registry
// mistake surfaces at startup instead of at call time.
func New(logger *slog.Logger, slo SLOService, degradation DegradationService, trend TrendService, ranking RankingService) (*Service, error) {
	service := &Service{
		logger:     logger,
		operations: make(map[Kind]operation),
	}
	service.register(Schema{
		Name:        string(OpGetDegradingServices),
		Description: "Identify services degrading over a time window compared to the adjacent baseline window.",
		Params:      []Param{windowMinutesParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		report := degradation.Detect(intArg(args, "time_window_minutes"), 0)
		return report, nil
	})
	service.register(Schema{
		Name:        string(OpGetErrorCodeDistribution),
		Description: "Distribution of error codes observed in the window, optionally filtered by service.",
		Params:      []Param{serviceNameParam(false), windowMinutesParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return degradation.ErrorCodeDistribution(stringArg(args, "service_name"), intArg(args, "time_window_minutes")), nil
	})
	service.register(Schema{
		Name:        string(OpGetCurrentSLI),
		Description: "Current service level indicators for all services or a single service.",
		Params:      []Param{serviceNameParam(false)},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		services := slo.CurrentSLI(stringArg(args, "service_name"))
		return map[string]any{"services": services, "count": len(services)}, nil
	})
	service.register(Schema{
		Name:        string(OpPredictIssuesToday),
		Description: "Trend based prediction of services likely to breach their targets before the horizon ends.",
		Params:      []Param{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return trend.Predict(), nil
	})
	service.register(Schema{
		Name:        string(OpGetServiceSummary),
		Description: "Composite summary for one service: SLI, compliance, error budget and burn rate.",
		Params:      []Param{serviceNameParam(true)},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return slo.ServiceSummary(stringArg(args, "service_name"))
	})
	service.register(Schema{
		Name:        string(OpGetSLOViolations),
		Description: "Services currently violating their error rate or response time targets.",
		Params:      []Param{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		violations := slo.Violations()
		return map[string]any{"violations": violations, "count": len(violations)}, nil
	})
	service.register(Schema{
		Name:        string(OpCalculateErrorBudget),
		Description: "Error budget consumption for one service over a trailing window.",
		Params: []Param{serviceNameParam(true),
			{Name: "time_window_hours", Type: TypeInt, Default: 4, Min: minWindowHours, Max: maxWindowHours}},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return slo.ErrorBudget(stringArg(args, "service_name"), intArg(args, "time_window_hours"))
	})
	service.register(Schema{
		Name:        string(OpGetVolumeTrends),
		Description: "Request volume and error series for one service over a trailing window.",
		Params:      []Param{serviceNameParam(true), windowMinutesParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return degradation.VolumeTrends(stringArg(args, "service_name"), intArg(args, "time_window_minutes"))
	})
	service.register(Schema{
		Name:        string(OpGetServiceHealthOverview),
		Description: "System wide counts of healthy, degraded and violating services.",
		Params:      []Param{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return ranking.HealthOverview(), nil
	})
	service.register(Schema{
		Name:        string(OpGetTopServicesByVolume),
		Description: "Top services by request volume.",
		Params:      []Param{limitParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		services := ranking.TopByVolume(intArg(args, "limit"))
		return map[string]any{"services": services, "count": len(services)}, nil
	})
	service.register(Schema{
		Name:        string(OpGetSlowestServices),
		Description: "Slowest services by mean latency, preferring the p99 tail when present.",
		Params:      []Param{limitParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		services := ranking.Slowest(intArg(args, "limit"))
		return map[string]any{"services": services, "count": len(services)}, nil
	})
	service.register(Schema{
		Name:        string(OpGetErrorProneServices),
		Description: "Services with the highest mean error rates.",
		Params:      []Param{limitParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		services := ranking.MostErrorProne(intArg(args, "limit"))
		return map[string]any{"services": services, "count": len(services)}, nil
	})
	service.register(Schema{
		Name:        string(OpGetTopErrors),
		Description: "Most frequent error codes across all error records.",
		Params:      []Param{limitParam()},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		errors := ranking.TopErrors(intArg(args, "limit"))
		return map[string]any{"errors": errors, "count": len(errors)}, nil
	})
	service.register(Schema{
		Name:        string(OpGetHistoricalPatterns),
		Description: "Long range statistical profile of one service.",
		Params:      []Param{serviceNameParam(true)},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return trend.HistoricalPatterns(stringArg(args, "service_name"))
	})

	for _, kind := range Kinds {
		if _, found := service.operations[kind]; !found {
			return nil, fmt.Errorf("operation %s has no registered handler", kind)
		}
	}
	return service, nil
}

func (s *Service) register(schema Schema, h handler) {
	s.operations[Kind(schema.Name)] = operation{schema: schema, handler: h}
}
