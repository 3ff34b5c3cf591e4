package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"titanic-survival/internal/dashboard"
	"titanic-survival/internal/metrics"
	"titanic-survival/internal/ml"
	"titanic-survival/internal/training"
)

const (
	shutdownTimeout     = 10 * time.Second
	modelAgeRefreshRate = time.Minute
)

func newServeCmd() *cobra.Command {
	var (
		port           int
		trainIfMissing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve survival predictions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}
			return serve(cmd.Context(), trainIfMissing)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&trainIfMissing, "train-if-missing", false, "train a model first when no artifacts are present")
	return cmd
}

func serve(parent context.Context, trainIfMissing bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := ml.ServerOptions{
		Port:           settings.Port,
		RequestTimeout: settings.RequestTimeout,
		CORSOrigins:    settings.CORSOrigins,
	}

	var (
		predictorMetrics ml.MetricsInterface
		trainingMetrics  training.MetricsInterface
		feedMetrics      dashboard.MetricsInterface
	)
	if settings.MetricsEnabled {
		mw := metrics.NewWrapper(metrics.New())
		predictorMetrics, trainingMetrics, feedMetrics = mw, mw, mw
		opts.MetricsHandler = promhttp.Handler()
	}

	if trainIfMissing && !artifactsPresent(settings.ModelDir) {
		log.Info().Str("model_dir", settings.ModelDir).Msg("No model artifacts found, training before serving")
		report, err := training.NewPipeline(trainingConfig(), trainingMetrics).Run(ctx)
		if err != nil {
			return err
		}
		if err := training.WriteReport(settings.ModelDir, report); err != nil {
			log.Warn().Err(err).Msg("Failed to write training report")
		}
	}

	// A missing model is not fatal: the API answers 503 until one is published.
	predictor, _ := ml.LoadPredictor(settings.ModelDir, predictorMetrics)

	if settings.DataPath != "" {
		store, err := openStore(settings.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize storage, continuing without prediction history")
		} else {
			defer store.Close()
			opts.Recorder = store
			log.Info().Str("path", settings.DataPath).Msg("Prediction history enabled")
		}
	}

	var feed *dashboard.Feed
	if settings.FeedEnabled {
		feed = dashboard.NewFeed(feedMetrics)
		if err := feed.Start(); err != nil {
			return err
		}
		defer feed.Stop()
		opts.Publisher = feed
		opts.FeedHandler = feed
	}

	server := ml.NewModelServer(predictor, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down model server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(modelAgeRefreshRate)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				predictor.RefreshModelAge()
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("Model server stopped")
	return nil
}

func artifactsPresent(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ml.ModelFile))
	return err == nil
}
