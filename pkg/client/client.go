// Package client holds the JSON payload types exchanged with API
// consumers.
package client

type Response struct {
	Messages []string `json:"messages"`
}

// LoadTelemetryInput is one raw ingestion batch. Records are loosely
// typed key/value mappings: the store's parser resolves the known source
// shapes and ignores unknown keys.
type LoadTelemetryInput struct {
	ServiceRecords []map[string]any `json:"service_records"`
	ErrorRecords   []map[string]any `json:"error_records"`
}

// LoadReport is the outcome of one ingestion batch.
type LoadReport struct {
	Generation             string   `json:"generation"`
	LoadedAt               string   `json:"loaded_at"`
	ServiceRecordsAccepted int      `json:"service_records_accepted"`
	ServiceRecordsRejected int      `json:"service_records_rejected"`
	ErrorRecordsAccepted   int      `json:"error_records_accepted"`
	ErrorRecordsRejected   int      `json:"error_records_rejected"`
	Reasons                []string `json:"reasons"`
}
