package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"titanic-survival/internal/storage"
	"titanic-survival/internal/training"
)

func newTrainCmd() *cobra.Command {
	var (
		datasetPath string
		modelDir    string
		trees       int
		maxDepth    int
		seed        int64
		workers     int
		noDownload  bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model and publish its artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tc := trainingConfig()
			if cmd.Flags().Changed("dataset") {
				tc.DatasetPath = datasetPath
			}
			if cmd.Flags().Changed("model-dir") {
				tc.ModelDir = modelDir
			}
			if cmd.Flags().Changed("trees") {
				tc.Trees = trees
			}
			if cmd.Flags().Changed("max-depth") {
				tc.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("seed") {
				tc.Seed = seed
			}
			tc.Workers = workers
			if noDownload {
				tc.DatasetURL = ""
			}

			log.Info().
				Str("dataset", tc.DatasetPath).
				Str("model_dir", tc.ModelDir).
				Int("trees", tc.Trees).
				Int("max_depth", tc.MaxDepth).
				Int64("seed", tc.Seed).
				Msg("Starting training run")

			report, err := training.NewPipeline(tc, nil).Run(ctx)
			if err != nil {
				return err
			}

			if err := training.WriteReport(tc.ModelDir, report); err != nil {
				return err
			}
			training.PrintSummary(cmd.OutOrStdout(), report)

			if settings.DataPath != "" {
				if err := recordRun(settings.DataPath, report); err != nil {
					log.Warn().Err(err).Msg("Failed to record training run")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "training CSV path (overrides DATASET_PATH)")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "artifact output directory (overrides MODEL_DIR)")
	cmd.Flags().IntVar(&trees, "trees", 0, "number of trees (overrides TREES)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum tree depth (overrides MAX_DEPTH)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides SEED)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel tree fitting workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&noDownload, "no-download", false, "fail instead of downloading a missing dataset")
	return cmd
}

// trainingConfig maps the loaded settings onto a pipeline config.
func trainingConfig() training.Config {
	tc := training.DefaultConfig()
	tc.DatasetPath = settings.DatasetPath
	tc.DatasetURL = settings.DatasetURL
	tc.ModelDir = settings.ModelDir
	tc.TestRatio = settings.TestRatio
	tc.Seed = settings.Seed
	tc.Trees = settings.Trees
	tc.MaxDepth = settings.MaxDepth
	tc.DownloadTimeout = settings.DownloadTimeout
	return tc
}

func recordRun(dataPath string, report *training.Report) error {
	store, err := openStore(dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.StoreTrainingRun(*report); err != nil {
		return fmt.Errorf("store training run: %w", err)
	}
	log.Info().Str("run_id", report.ID).Msg("Training run recorded")
	return nil
}

func openStore(dataPath string) (*storage.Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return storage.New(dataPath)
}
