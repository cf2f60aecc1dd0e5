package handlers

import (
	"context"

	"github.com/sloscope/server/pkg/dispatch"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// TelemetryStore is the ingestion surface of the metric store.
type TelemetryStore interface {
	Load(ctx context.Context, serviceRaw []map[string]any, errorRaw []map[string]any) (*aggregates.LoadReport, error)
	Clear(ctx context.Context) error
}

// Dispatcher executes named analytics operations.
type Dispatcher interface {
	Execute(ctx context.Context, name string, args map[string]any) (*dispatch.Envelope, error)
	Schemas() []dispatch.Schema
}

type Builder struct {
	store      TelemetryStore
	dispatcher Dispatcher
}

func NewBuilder(store TelemetryStore, dispatcher Dispatcher) *Builder {
	return &Builder{
		store:      store,
		dispatcher: dispatcher,
	}
}
