package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sloscope/server/pkg/client"
	"github.com/sloscope/server/pkg/telemetry/aggregates"
)

// LoadTelemetry ingests one raw batch and swaps the snapshot. Row level
// failures are reported, an entirely unparseable batch keeps the
// previous snapshot and fails.
func (b *Builder) LoadTelemetry(ec echo.Context) error {
	var payload client.LoadTelemetryInput
	if err := ec.Bind(&payload); err != nil {
		return err
	}
	report, err := b.store.Load(ec.Request().Context(), payload.ServiceRecords, payload.ErrorRecords)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusAccepted, toLoadReport(report))
}

// ClearTelemetry resets the store to an empty snapshot.
func (b *Builder) ClearTelemetry(ec echo.Context) error {
	if err := b.store.Clear(ec.Request().Context()); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, NewResponse("telemetry cleared"))
}

func toLoadReport(report *aggregates.LoadReport) client.LoadReport {
	result := client.LoadReport{
		Generation:             report.Generation,
		LoadedAt:               report.LoadedAt.UTC().Format(time.RFC3339),
		ServiceRecordsAccepted: report.ServiceAccepted,
		ServiceRecordsRejected: report.ServiceRejected,
		ErrorRecordsAccepted:   report.ErrorAccepted,
		ErrorRecordsRejected:   report.ErrorRejected,
		Reasons:                report.Reasons,
	}
	if result.Reasons == nil {
		result.Reasons = []string{}
	}
	return result
}
