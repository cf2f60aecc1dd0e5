package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// Raw records arrive in two shapes: values either sit under a top-level
// key (possibly inside the "scripted_metric" object), or under "fields"
// where each value is wrapped in a single-element array. Every logical
// field declares an ordered list of extraction strategies, tried in
// sequence until one yields a value.

type fieldSource int

const (
	fromTop fieldSource = iota
	fromScripted
	fromFields
)

type extractor struct {
	source fieldSource
	key    string
}

func top(key string) extractor      { return extractor{source: fromTop, key: key} }
func scripted(key string) extractor { return extractor{source: fromScripted, key: key} }
func fields(key string) extractor   { return extractor{source: fromFields, key: key} }

func extract(raw map[string]any, extractors []extractor) (any, bool) {
	for _, e := range extractors {
		var value any
		var found bool
		switch e.source {
		case fromTop:
			value, found = raw[e.key]
		case fromScripted:
			value, found = nestedValue(raw, "scripted_metric", e.key)
		case fromFields:
			value, found = nestedValue(raw, "fields", e.key)
			if found {
				value, found = firstElement(value)
			}
		}
		if found && value != nil {
			return value, true
		}
	}
	return nil, false
}

func nestedValue(raw map[string]any, objectKey, key string) (any, bool) {
	object, ok := raw[objectKey].(map[string]any)
	if !ok {
		return nil, false
	}
	value, found := object[key]
	return value, found
}

func firstElement(value any) (any, bool) {
	list, ok := value.([]any)
	if !ok {
		return value, true
	}
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

func stringField(raw map[string]any, extractors ...extractor) string {
	value, found := extract(raw, extractors)
	if !found {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}

func floatField(raw map[string]any, extractors ...extractor) *float64 {
	value, found := extract(raw, extractors)
	if !found {
		return nil
	}
	switch v := value.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// countField treats an absent count as zero: counts are the only numeric
// fields where absence means "nothing observed" rather than "unknown".
func countField(raw map[string]any, extractors ...extractor) int64 {
	f := floatField(raw, extractors...)
	if f == nil {
		return 0
	}
	return int64(*f)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func timeField(raw map[string]any, extractors ...extractor) (time.Time, error) {
	value, found := extract(raw, extractors)
	if !found {
		return time.Time{}, fmt.Errorf("missing record_time")
	}
	switch v := value.(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparsable record_time %q", v)
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(v)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparsable record_time of type %T", value)
}

func codesField(raw map[string]any, extractors ...extractor) []string {
	value, found := extract(raw, extractors)
	if !found {
		return nil
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		codes := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				codes = append(codes, s)
			} else {
				codes = append(codes, fmt.Sprintf("%v", item))
			}
		}
		return codes
	}
	return nil
}

func parseServiceRecord(raw map[string]any) (aggregates.ServiceRecord, error) {
	record := aggregates.ServiceRecord{}
	recordTime, err := timeField(raw, top("record_time"), fields("record_time"))
	if err != nil {
		return record, err
	}
	record.RecordTime = recordTime

	record.ServiceName = stringField(raw, scripted("service_name"), fields("service_name"), top("service_name"))
	if record.ServiceName == "" {
		return record, fmt.Errorf("missing service_name")
	}
	record.ID = stringField(raw, top("_id"), top("id"))
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.AppID = stringField(raw, top("app_id"))
	record.SID = stringField(raw, top("sid"))

	record.TotalCount = countField(raw, scripted("total_count"), fields("total_count"), top("total_count"))
	record.SuccessCount = countField(raw, scripted("success_count"), fields("success_count"), top("success_count"))
	record.ErrorCount = countField(raw, scripted("error_count"), fields("error_count"), top("error_count"))
	if record.TotalCount < 0 || record.SuccessCount < 0 || record.ErrorCount < 0 {
		return record, fmt.Errorf("service %s: negative count", record.ServiceName)
	}
	if record.SuccessCount+record.ErrorCount > record.TotalCount {
		return record, fmt.Errorf("service %s: success_count + error_count exceeds total_count", record.ServiceName)
	}

	record.ErrorRate = floatField(raw, scripted("error_rate"), fields("error_rate"), top("error_rate"))
	if record.ErrorRate != nil && (*record.ErrorRate < 0 || *record.ErrorRate > 100) {
		return record, fmt.Errorf("service %s: error_rate %f out of range", record.ServiceName, *record.ErrorRate)
	}
	record.ResponseTimeAvg = floatField(raw, top("response_time_avg"), fields("response_time_avg"))
	if record.ResponseTimeAvg != nil && *record.ResponseTimeAvg < 0 {
		return record, fmt.Errorf("service %s: negative response_time_avg", record.ServiceName)
	}
	record.ResponseTimeMin = floatField(raw, top("response_time_min"))
	record.ResponseTimeMax = floatField(raw, top("response_time_max"))
	if percentiles, ok := raw["percentiles_response_time_max"].(map[string]any); ok {
		record.ResponseTimeP95 = floatField(percentiles, top("95.0"))
		record.ResponseTimeP99 = floatField(percentiles, top("99.0"))
	}

	record.TargetErrorRate = floatField(raw, scripted("target_error_slo_perc"), fields("target_error_slo_perc"))
	record.TargetResponseTime = floatField(raw, scripted("target_response_slo_sec"), fields("target_response_slo_sec"))
	record.TargetCompliancePercent = floatField(raw, scripted("response_target_percent"), fields("response_target_percent"))
	return record, nil
}

func parseErrorRecord(raw map[string]any) (aggregates.ErrorRecord, error) {
	record := aggregates.ErrorRecord{}
	recordTime, err := timeField(raw, top("record_time"), fields("record_time"))
	if err != nil {
		return record, err
	}
	record.RecordTime = recordTime

	record.ID = stringField(raw, top("_id"), top("id"))
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.ApplicationID = stringField(raw, top("wmApplicationId"), top("wm_application_id"))
	record.ApplicationName = stringField(raw, top("wmApplicationName"), top("wm_application_name"))
	record.TransactionID = stringField(raw, top("wmTransactionId"), top("wm_transaction_id"))
	record.TransactionName = stringField(raw, scripted("wmTransactionName"), fields("wmTransactionName"))
	record.ErrorCodes = codesField(raw, top("errorCodes"), top("error_codes"))

	record.ErrorCount = countField(raw, scripted("error_count"), top("error_count"))
	record.TotalCount = countField(raw, top("total_count"), scripted("total_count"))
	record.TechnicalErrorCount = countField(raw, scripted("technical_error_count"), fields("technical_error_count"))
	record.BusinessErrorCount = countField(raw, scripted("business_error_count"), fields("business_error_count"))
	if record.ErrorCount < 0 || record.TotalCount < 0 || record.TechnicalErrorCount < 0 || record.BusinessErrorCount < 0 {
		return record, fmt.Errorf("error record %s: negative count", record.ID)
	}

	record.ResponseTimeAvg = floatField(raw, top("responseTime_avg"), top("response_time_avg"))
	if details := stringField(raw, scripted("error_details"), fields("error_details")); details != "" {
		record.ErrorDetails = &details
	}
	return record, nil
}
