package training

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanic-survival/internal/features"
	"titanic-survival/internal/ml"
)

// syntheticCSV builds a dataset where women and first-class passengers
// mostly survive.
func syntheticCSV(n int) string {
	rnd := rand.New(rand.NewSource(1))
	var b strings.Builder
	b.WriteString("PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked\n")
	ports := []string{"S", "C", "Q", ""}
	for i := 1; i <= n; i++ {
		pclass := rnd.Intn(3) + 1
		female := rnd.Intn(2) == 0
		sex, title := "male", "Mr"
		if female {
			sex, title = "female", "Mrs"
		}
		survived := 0
		if female || (pclass == 1 && rnd.Intn(3) == 0) {
			survived = 1
		}
		age := ""
		if rnd.Intn(5) != 0 {
			age = fmt.Sprintf("%d", 1+rnd.Intn(70))
		}
		cabin := ""
		if pclass == 1 {
			cabin = fmt.Sprintf("%c%d", 'A'+rune(rnd.Intn(5)), rnd.Intn(100))
		}
		fare := 80.0 / float64(pclass)
		fmt.Fprintf(&b, "%d,%d,%d,\"Doe, %s. Pat\",%s,%s,%d,%d,T%d,%.2f,%s,%s\n",
			i, survived, pclass, title, sex, age, rnd.Intn(3), rnd.Intn(2), i, fare, cabin, ports[rnd.Intn(len(ports))])
	}
	return b.String()
}

type recordingMetrics struct {
	runs, failures int
	accuracy       float64
	durations      int
}

func (m *recordingMetrics) TrainingRunsInc()                  { m.runs++ }
func (m *recordingMetrics) TrainingFailuresInc()              { m.failures++ }
func (m *recordingMetrics) TrainingAccuracySet(v float64)     { m.accuracy = v }
func (m *recordingMetrics) TrainingDurationObserve(_ float64) { m.durations++ }

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DatasetPath = filepath.Join(dir, "data", "titanic.csv")
	cfg.DatasetURL = ""
	cfg.ModelDir = filepath.Join(dir, "models")
	cfg.Trees = 12
	return cfg
}

func writeDataset(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestPipeline_Run(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.DatasetPath, syntheticCSV(200))
	metrics := &recordingMetrics{}

	report, err := NewPipeline(cfg, metrics).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 200, report.Records)
	assert.Equal(t, 200, report.TrainRows+report.TestRows)
	assert.InDelta(t, 40, report.TestRows, 1)
	assert.Equal(t, features.CanonicalOrder(), report.FeatureNames)
	assert.Equal(t, 12, report.Forest.Trees)
	assert.Equal(t, 10, report.Forest.MaxDepth)
	assert.Equal(t, 3, report.Forest.MaxFeatures)
	assert.Greater(t, report.Evaluation.Accuracy, 0.7)
	assert.Greater(t, report.Imputation.AgeFilled, 0)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	assert.Equal(t, 1, metrics.runs)
	assert.Equal(t, 0, metrics.failures)
	assert.Equal(t, report.Evaluation.Accuracy, metrics.accuracy)

	artifacts, err := ml.LoadArtifacts(cfg.ModelDir)
	require.NoError(t, err)
	assert.Equal(t, ml.RandomForestType, artifacts.ModelType)

	predictor := ml.NewPredictor(artifacts, nil)
	woman, err := predictor.Predict(features.Passenger{Pclass: 1, Sex: "female", Age: 30, Fare: 80, Embarked: "S", Name: "Doe, Mrs. Pat"})
	require.NoError(t, err)
	man, err := predictor.Predict(features.Passenger{Pclass: 3, Sex: "male", Age: 30, Fare: 26.67, Embarked: "S", Name: "Doe, Mr. Pat"})
	require.NoError(t, err)
	assert.Greater(t, woman.SurvivalProbability, man.SurvivalProbability)
}

func TestPipeline_Deterministic(t *testing.T) {
	data := syntheticCSV(120)

	run := func() []byte {
		cfg := testConfig(t)
		writeDataset(t, cfg.DatasetPath, data)
		_, err := NewPipeline(cfg, nil).Run(context.Background())
		require.NoError(t, err)
		encoders, err := os.ReadFile(filepath.Join(cfg.ModelDir, ml.EncodersFile))
		require.NoError(t, err)
		scaler, err := os.ReadFile(filepath.Join(cfg.ModelDir, ml.ScalerFile))
		require.NoError(t, err)
		artifacts, err := ml.LoadArtifacts(cfg.ModelDir)
		require.NoError(t, err)
		model, err := json.Marshal(artifacts.Model)
		require.NoError(t, err)
		return bytes.Join([][]byte{encoders, scaler, model}, nil)
	}

	assert.True(t, bytes.Equal(run(), run()))
}

func TestPipeline_DownloadsMissingDataset(t *testing.T) {
	data := syntheticCSV(80)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(data))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DatasetURL = srv.URL
	cfg.DownloadTimeout = 5 * time.Second

	_, err := NewPipeline(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
	assert.FileExists(t, cfg.DatasetPath)

	_, err = NewPipeline(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "existing dataset is not downloaded again")
}

func TestPipeline_Failures(t *testing.T) {
	t.Run("missing dataset without url", func(t *testing.T) {
		cfg := testConfig(t)
		metrics := &recordingMetrics{}

		_, err := NewPipeline(cfg, metrics).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, metrics.failures)
		assert.Equal(t, 0, metrics.runs)
	})

	t.Run("empty dataset", func(t *testing.T) {
		cfg := testConfig(t)
		writeDataset(t, cfg.DatasetPath, "Survived,Pclass,Sex,Age,SibSp,Parch,Fare,Embarked\n")

		_, err := NewPipeline(cfg, nil).Run(context.Background())
		assert.True(t, errors.Is(err, ErrEmptyDataset), "got %v", err)
		assert.NoDirExists(t, cfg.ModelDir)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cfg := testConfig(t)
		writeDataset(t, cfg.DatasetPath, syntheticCSV(50))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewPipeline(cfg, nil).Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
		assert.NoFileExists(t, filepath.Join(cfg.ModelDir, ml.ModelFile))
	})
}

func TestReproducesModel(t *testing.T) {
	X := [][]float64{{1, 0}, {-1, 0}, {2, 1}}

	check := ReproducesModel(X, firstColumnModel{})
	assert.NoError(t, check(&ml.Artifacts{Model: firstColumnModel{}}))

	inverted := ReproducesModel(X, invertedModel{})
	assert.Error(t, inverted(&ml.Artifacts{Model: firstColumnModel{}}))
}

// invertedModel disagrees with firstColumnModel on every row.
type invertedModel struct{}

func (invertedModel) Predict(x []float64) int { return 1 - firstColumnModel{}.Predict(x) }

func (invertedModel) PredictProba(x []float64) []float64 {
	p := firstColumnModel{}.PredictProba(x)
	return []float64{p[1], p[0]}
}

func TestReport_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	report := &Report{
		ID:         "run-1",
		StartedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2025, 1, 2, 3, 4, 9, 0, time.UTC),
		ModelType:  ml.RandomForestType,
		Records:    891,
		Evaluation: Evaluation{Accuracy: 0.82, Samples: 179},
	}

	require.NoError(t, WriteReport(dir, report))
	back, err := ReadReport(dir)
	require.NoError(t, err)
	assert.Equal(t, report, back)

	var out bytes.Buffer
	PrintSummary(&out, report)
	assert.Contains(t, out.String(), "Model accuracy: 0.8200")
	assert.Contains(t, out.String(), "Duration: 4s")
}
