package aggregates

import (
	"sort"
	"time"
)

// Snapshot is an immutable view of the loaded telemetry tables. A
// snapshot is built once during a load and never mutated afterwards, so
// readers can hold it without synchronization.
type Snapshot struct {
	Generation     string
	LoadedAt       time.Time
	ServiceRecords []ServiceRecord
	ErrorRecords   []ErrorRecord

	serviceNames []string
}

func NewSnapshot(generation string, loadedAt time.Time, services []ServiceRecord, errors []ErrorRecord) *Snapshot {
	names := make(map[string]struct{})
	for i := range services {
		names[services[i].ServiceName] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	return &Snapshot{
		Generation:     generation,
		LoadedAt:       loadedAt,
		ServiceRecords: services,
		ErrorRecords:   errors,
		serviceNames:   sorted,
	}
}

// ServiceNames returns the distinct service names, sorted ascending.
func (s *Snapshot) ServiceNames() []string {
	return s.serviceNames
}

// ServiceWindow returns the service records with start < record_time <= end.
// An empty serviceName matches every service. Zero start or end disables
// that bound.
func (s *Snapshot) ServiceWindow(start, end time.Time, serviceName string) []ServiceRecord {
	result := []ServiceRecord{}
	for i := range s.ServiceRecords {
		record := s.ServiceRecords[i]
		if serviceName != "" && record.ServiceName != serviceName {
			continue
		}
		if !inWindow(record.RecordTime, start, end) {
			continue
		}
		result = append(result, record)
	}
	return result
}

// ErrorWindow returns the error records with start < record_time <= end.
func (s *Snapshot) ErrorWindow(start, end time.Time) []ErrorRecord {
	result := []ErrorRecord{}
	for i := range s.ErrorRecords {
		record := s.ErrorRecords[i]
		if !inWindow(record.RecordTime, start, end) {
			continue
		}
		result = append(result, record)
	}
	return result
}

// MaxServiceTime returns the latest record_time in the service table, or
// false if the table is empty. Rows arrive out of order so the whole
// table is scanned.
func (s *Snapshot) MaxServiceTime() (time.Time, bool) {
	var max time.Time
	for i := range s.ServiceRecords {
		if s.ServiceRecords[i].RecordTime.After(max) {
			max = s.ServiceRecords[i].RecordTime
		}
	}
	return max, !max.IsZero()
}

// MaxErrorTime returns the latest record_time in the error table, or
// false if the table is empty.
func (s *Snapshot) MaxErrorTime() (time.Time, bool) {
	var max time.Time
	for i := range s.ErrorRecords {
		if s.ErrorRecords[i].RecordTime.After(max) {
			max = s.ErrorRecords[i].RecordTime
		}
	}
	return max, !max.IsZero()
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && !t.After(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
