package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/signalbook/internal/api"
	"github.com/newthinker/signalbook/internal/app"
	"github.com/newthinker/signalbook/internal/logger"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/scorer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signalbook server",
	Long:  "Run the scheduler (price refresh, message polling, daily report) and the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.Must(cfg.Log)
	defer log.Sync()
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	a.SetScorer(scorer.NewRiskScorer(a.Risk()))

	deps := api.Dependencies{App: a}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewRegistry()
		a.SetRecorder(deps.Metrics)
	}

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MetricsPath:    cfg.Metrics.Path,
		StreamInterval: cfg.Server.StreamInterval,
	}, deps, log.Named("api"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting signalbook server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		stop()
	}

	log.Info("shutting down signalbook server")
	a.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		return err
	}
	return nil
}
