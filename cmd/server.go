package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sloscope/server/config"
	"github.com/sloscope/server/internal/database"
	"github.com/sloscope/server/internal/http"
	"github.com/sloscope/server/internal/http/handlers"
	"github.com/sloscope/server/internal/traces"
	"github.com/sloscope/server/pkg/degradation"
	"github.com/sloscope/server/pkg/dispatch"
	"github.com/sloscope/server/pkg/ranking"
	"github.com/sloscope/server/pkg/slo"
	"github.com/sloscope/server/pkg/telemetry"
	"github.com/sloscope/server/pkg/trend"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func buildServerCmd(logger *slog.Logger) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Runs the HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			err := runServer(logger)
			if err != nil {
				logger.Error(err.Error())
				os.Exit(2)
			}

		},
	}
	return serverCmd
}

func runServer(logger *slog.Logger) error {
	file, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("fail to read configuration file: %w", err)
	}
	var config config.Configuration
	if err := yaml.Unmarshal(file, &config); err != nil {
		return fmt.Errorf("fail to parse yaml configuration file: %w", err)
	}
	config.SLO = config.SLO.WithDefaults()

	tracer, err := traces.New(context.Background(), logger, config.Tracing)
	if err != nil {
		return err
	}

	var archiver telemetry.Archiver
	if config.Database != nil {
		db, err := database.New(logger, *config.Database)
		if err != nil {
			return err
		}
		archiver = db
	}

	registry := prometheus.DefaultRegisterer.(*prometheus.Registry)
	store, err := telemetry.NewStore(logger, registry, archiver)
	if err != nil {
		return err
	}
	sloService := slo.New(logger, store, config.SLO)
	degradationService := degradation.New(logger, store, config.SLO)
	trendService := trend.New(logger, store, config.SLO)
	rankingService := ranking.New(logger, store, sloService, degradationService, config.SLO)
	dispatcher, err := dispatch.New(logger, sloService, degradationService, trendService, rankingService)
	if err != nil {
		return err
	}

	handlersBuilder := handlers.NewBuilder(store, dispatcher)
	server, err := http.NewServer(logger, config.HTTP, registry, handlersBuilder)
	if err != nil {
		return err
	}
	signals := make(chan os.Signal, 1)
	errChan := make(chan error)

	signal.Notify(
		signals,
		syscall.SIGINT,
		syscall.SIGTERM)

	server.Start()
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info(fmt.Sprintf("received signal %s, starting shutdown", sig))
				signal.Stop(signals)
				if err := tracer.Stop(); err != nil {
					logger.Error(fmt.Sprintf("fail to stop the tracer: %s", err.Error()))
				}
				err := server.Stop()
				if err != nil {
					errChan <- err
				}
				errChan <- nil
			}

		}
	}()
	exitErr := <-errChan
	return exitErr
}
