package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"titanic-survival/internal/features"
	"titanic-survival/internal/ml"
)

// MetricsInterface defines metrics methods needed by the training pipeline
type MetricsInterface interface {
	TrainingRunsInc()
	TrainingFailuresInc()
	TrainingAccuracySet(float64)
	TrainingDurationObserve(float64)
}

// Config controls one training run.
type Config struct {
	DatasetPath     string
	DatasetURL      string // fetched when DatasetPath does not exist; empty disables
	ModelDir        string
	TestRatio       float64
	Seed            int64
	Trees           int
	MaxDepth        int
	Workers         int
	DownloadTimeout time.Duration
}

// DefaultConfig returns the standard training setup.
func DefaultConfig() Config {
	return Config{
		DatasetPath:     "data/titanic.csv",
		DatasetURL:      DefaultDatasetURL,
		ModelDir:        "models",
		TestRatio:       0.2,
		Seed:            ml.DefaultRandomState,
		Trees:           ml.DefaultEstimators,
		MaxDepth:        ml.DefaultMaxDepth,
		DownloadTimeout: 30 * time.Second,
	}
}

// Report describes a completed training run.
type Report struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	DatasetPath  string        `json:"dataset_path"`
	ModelDir     string        `json:"model_dir"`
	ModelType    string        `json:"model_type"`
	Records      int           `json:"records"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	FeatureNames []string      `json:"feature_names"`
	Imputation   Imputation    `json:"imputation"`
	Evaluation   Evaluation    `json:"evaluation"`
	Forest       ForestSummary `json:"forest"`

	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
}

// ForestSummary records the hyper-parameters the model was fitted with.
type ForestSummary struct {
	Trees       int   `json:"trees"`
	MaxDepth    int   `json:"max_depth"`
	MaxFeatures int   `json:"max_features"`
	Seed        int64 `json:"seed"`
}

// Pipeline runs training end to end.
type Pipeline struct {
	cfg     Config
	metrics MetricsInterface
}

// NewPipeline creates a pipeline; metrics may be nil.
func NewPipeline(cfg Config, metrics MetricsInterface) *Pipeline {
	return &Pipeline{cfg: cfg, metrics: metrics}
}

// Run trains a model and publishes its artifacts to the configured model
// directory. Nothing is published unless every step succeeds.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := p.run(ctx, start)
	if p.metrics != nil {
		p.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		if err != nil {
			p.metrics.TrainingFailuresInc()
		} else {
			p.metrics.TrainingRunsInc()
			p.metrics.TrainingAccuracySet(report.Evaluation.Accuracy)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Training failed")
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, start time.Time) (*Report, error) {
	if err := p.ensureDataset(ctx); err != nil {
		return nil, err
	}

	records, err := LoadCSV(p.cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("records", len(records)).Str("path", p.cfg.DatasetPath).Msg("Dataset loaded")

	passengers, labels, imp := Impute(records)
	log.Info().
		Float64("age_median", imp.AgeMedian).
		Float64("fare_median", imp.FareMedian).
		Str("embarked_mode", imp.EmbarkedMode).
		Int("age_filled", imp.AgeFilled).
		Int("embarked_filled", imp.EmbarkedFilled).
		Msg("Missing values imputed")

	rows := make([]features.Row, len(passengers))
	for i, passenger := range passengers {
		rows[i] = features.Derive(passenger)
	}

	encoders, scaler := FitPreprocessors(rows)
	order := features.CanonicalOrder()
	vec, err := features.NewVectorizer(encoders, scaler, order)
	if err != nil {
		return nil, err
	}
	X := make([][]float64, len(rows))
	for i, row := range rows {
		X[i] = vec.Transform(row, nil)
	}
	log.Info().Int("features", len(order)).Msg("Preprocessed dataset")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, p.cfg.TestRatio, p.cfg.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain := subset(X, labels, trainIdx)
	xTest, yTest := subset(X, labels, testIdx)

	opts := []ml.ForestOption{ml.WithRandomState(p.cfg.Seed), ml.WithWorkers(p.cfg.Workers)}
	if p.cfg.Trees > 0 {
		opts = append(opts, ml.WithEstimators(p.cfg.Trees))
	}
	if p.cfg.MaxDepth > 0 {
		opts = append(opts, ml.WithMaxDepth(p.cfg.MaxDepth))
	}
	forest := ml.NewRandomForest(opts...)
	if err := forest.Fit(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	yPred := make([]int, len(xTest))
	for i, x := range xTest {
		yPred[i] = forest.Predict(x)
	}
	eval, err := Evaluate(yTest, yPred)
	if err != nil {
		return nil, err
	}
	log.Info().Float64("accuracy", eval.Accuracy).Int("test_rows", len(yTest)).Msg("Model evaluated")

	importance, err := PermutationImportance(forest, xTest, yTest, order, p.cfg.Seed)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("top_features", TopFeatures(importance, 3)).Msg("Permutation importance computed")

	artifacts, err := ml.NewArtifacts(forest, ml.RandomForestType, encoders, scaler, order)
	if err != nil {
		return nil, err
	}
	artifacts.TrainedAt = time.Now().UTC()
	if err := ml.SaveArtifacts(p.cfg.ModelDir, artifacts, ReproducesModel(xTest, forest)); err != nil {
		return nil, err
	}

	return &Report{
		ID:           uuid.NewString(),
		StartedAt:    start.UTC(),
		FinishedAt:   time.Now().UTC(),
		DatasetPath:  p.cfg.DatasetPath,
		ModelDir:     p.cfg.ModelDir,
		ModelType:    ml.RandomForestType,
		Records:      len(records),
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		FeatureNames: order,
		Imputation:   imp,
		Evaluation:   eval,
		Forest: ForestSummary{
			Trees:       forest.NEstimators,
			MaxDepth:    forest.MaxDepth,
			MaxFeatures: effectiveMaxFeatures(forest),
			Seed:        forest.RandomState,
		},
		FeatureImportance: importance,
	}, nil
}

func (p *Pipeline) ensureDataset(ctx context.Context) error {
	_, err := os.Stat(p.cfg.DatasetPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat dataset: %w", err)
	}
	if p.cfg.DatasetURL == "" {
		return fmt.Errorf("dataset %s not found and no download URL configured", p.cfg.DatasetPath)
	}
	return Download(ctx, p.cfg.DatasetURL, p.cfg.DatasetPath, p.cfg.DownloadTimeout)
}

// FitPreprocessors fits the categorical encoders and numeric scaler on the
// derived rows.
func FitPreprocessors(rows []features.Row) (*features.EncoderTable, *features.Scaler) {
	categories := make(map[string][]string)
	numbers := make(map[string][]float64)
	for _, row := range rows {
		for _, col := range features.CategoricalColumns() {
			v, _ := row.Category(col)
			categories[col] = append(categories[col], v)
		}
		for _, col := range features.NumericColumns() {
			v, _ := row.Number(col)
			numbers[col] = append(numbers[col], v)
		}
	}
	return features.FitEncoderTable(categories), features.FitScaler(numbers)
}

// ReproducesModel returns a check that the reloaded artifacts give exactly
// the fitted model's probabilities on X.
func ReproducesModel(X [][]float64, fitted ml.Classifier) ml.ArtifactCheck {
	return func(loaded *ml.Artifacts) error {
		for i, x := range X {
			want, got := fitted.PredictProba(x), loaded.Model.PredictProba(x)
			if len(want) != len(got) {
				return fmt.Errorf("verify artifacts: row %d: class count %d != %d", i, len(got), len(want))
			}
			for k := range want {
				if want[k] != got[k] {
					return fmt.Errorf("verify artifacts: row %d: probability drift after reload", i)
				}
			}
		}
		log.Info().Int("rows_checked", len(X)).Msg("Staged artifacts verified")
		return nil
	}
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func effectiveMaxFeatures(f *ml.RandomForest) int {
	if f.MaxFeatures > 0 {
		return f.MaxFeatures
	}
	n := 1
	for (n+1)*(n+1) <= f.NFeatures {
		n++
	}
	return n
}
