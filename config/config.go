package config

import (
	"github.com/sloscope/server/internal/database"
	"github.com/sloscope/server/internal/http"
	"github.com/sloscope/server/internal/traces"
	"github.com/sloscope/server/pkg/slo"
)

type Configuration struct {
	HTTP     http.Configuration
	Database *database.Configuration
	Tracing  traces.Configuration
	SLO      slo.Configuration
}
