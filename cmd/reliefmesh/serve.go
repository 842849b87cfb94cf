package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/reliefmesh/reliefmesh/internal/api"
	"github.com/reliefmesh/reliefmesh/internal/bus"
	"github.com/reliefmesh/reliefmesh/internal/config"
	"github.com/reliefmesh/reliefmesh/internal/geo"
	"github.com/reliefmesh/reliefmesh/internal/inventory"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/internal/store"
	"github.com/reliefmesh/reliefmesh/internal/synthesis"
	"github.com/reliefmesh/reliefmesh/internal/workflow"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one pipeline service",
	}
	for _, stage := range []string{"intake", "analysis", "planning", "dashboard"} {
		stage := stage
		cmd.AddCommand(&cobra.Command{
			Use:   stage,
			Short: "Run the " + stage + " service",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(stage)
			},
		})
	}
	return cmd
}

func runServe(stage string) error {
	ctx := context.Background()
	logger := logging.NewLogger().Named(stage)

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", "stage", stage, "port", cfg.HTTP.Port)

	if stage == "dashboard" && cfg.Dashboard.IntakeURL == "" {
		return fmt.Errorf("dashboard.intake_url is required for the dashboard service")
	}

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	docs := store.NewPostgresStore(pool)
	if err := docs.InitSchema(ctx); err != nil {
		return err
	}

	collections := workflow.Collections{
		Requests:  cfg.Collections.Requests,
		Reports:   cfg.Collections.Reports,
		Plans:     cfg.Collections.Plans,
		Inventory: cfg.Collections.Inventory,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("reliefmesh-" + stage))
	api.RegisterHealth(e, "reliefmesh-"+stage)

	// The dispatcher runs inside any process that publishes. Duplicate
	// dispatchers across processes are safe: delivery is at-least-once.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()
	startDispatcher := func() error {
		outbox := bus.NewOutbox(pool)
		if err := outbox.InitSchema(ctx); err != nil {
			return err
		}
		d := bus.NewDispatcher(pool, cfg.Bus.Endpoints,
			cfg.Bus.DispatchInterval, cfg.Bus.RetryBase, cfg.Bus.RetryCap, logger)
		go d.Run(dispatchCtx)
		return nil
	}

	switch stage {
	case "intake":
		if err := startDispatcher(); err != nil {
			return err
		}
		geoClient := geo.NewHTTPClient(cfg.Geo.URL, cfg.Geo.Timeout)
		outbox := bus.NewOutbox(pool)
		intake := workflow.NewIntake(docs, outbox, geoClient, collections, cfg.Bus.AnalysisTopic, logger)
		api.NewIntakeHandler(intake, logger).Register(e)

	case "analysis":
		if err := startDispatcher(); err != nil {
			return err
		}
		geoClient := geo.NewHTTPClient(cfg.Geo.URL, cfg.Geo.Timeout)
		synth, err := newSynthesizer(ctx, cfg)
		if err != nil {
			return err
		}
		outbox := bus.NewOutbox(pool)
		policy := workflow.NewBackoffFactory(cfg.Retry.InitialInterval, cfg.Retry.Multiplier, cfg.Retry.MaxAttempts)
		analysis := workflow.NewAnalysis(docs, outbox, geoClient, synth, collections, cfg.Bus.PlanningTopic, policy, logger)
		api.NewPushHandler("analysis", analysis.Run, logger).Register(e)

	case "planning":
		synth, err := newSynthesizer(ctx, cfg)
		if err != nil {
			return err
		}
		inv := inventory.NewStoreProvider(docs, cfg.Collections.Inventory)
		planning := workflow.NewPlanning(docs, synth, inv, collections, logger)
		api.NewPushHandler("planning", planning.Run, logger).Register(e)

	case "dashboard":
		status := workflow.NewStatus(docs, collections)
		api.NewDashboardHandler(status, cfg.Dashboard.IntakeURL, cfg.Dashboard.PollInterval).Register(e)
	}

	// The async stages hold the connection through the read backoff and the
	// synthesis call, so they need a far longer write window.
	writeTimeout := 15 * time.Second
	if stage == "analysis" || stage == "planning" {
		writeTimeout = 5 * time.Minute
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", server.Addr, "stage", stage)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		stopDispatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}

func newSynthesizer(ctx context.Context, cfg *config.Config) (synthesis.Synthesizer, error) {
	return synthesis.NewGeminiSynthesizer(ctx, synthesis.GeminiConfig{
		APIKey:   cfg.GenAI.APIKey,
		Project:  cfg.GenAI.Project,
		Location: cfg.GenAI.Location,
		Model:    cfg.GenAI.Model,
		Timeout:  cfg.GenAI.Timeout,
	})
}
