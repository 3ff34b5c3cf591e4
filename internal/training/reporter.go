package training

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// ReportFile is written next to the artifacts after a successful run.
const ReportFile = "training_report.json"

// WriteReport stores the report as JSON in dir.
func WriteReport(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal training report: %w", err)
	}

	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write training report: %w", err)
	}

	log.Info().Str("file", path).Msg("Training report generated")
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse training report: %w", err)
	}
	return &report, nil
}

// PrintSummary writes a human-readable summary of the run.
func PrintSummary(w io.Writer, report *Report) {
	fmt.Fprintln(w, "\n=== TRAINING RESULTS ===")
	fmt.Fprintf(w, "Run: %s\n", report.ID)
	fmt.Fprintf(w, "Dataset: %s (%d records)\n", report.DatasetPath, report.Records)
	fmt.Fprintf(w, "Split: %d train / %d test\n", report.TrainRows, report.TestRows)
	fmt.Fprintf(w, "Model: %s (%d trees, max depth %d, %d features per split)\n",
		report.ModelType, report.Forest.Trees, report.Forest.MaxDepth, report.Forest.MaxFeatures)
	fmt.Fprintf(w, "Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Model accuracy: %.4f\n\n", report.Evaluation.Accuracy)
	fmt.Fprint(w, report.Evaluation.String())
	if len(report.FeatureImportance) > 0 {
		fmt.Fprintln(w, "\nPermutation importance (accuracy drop):")
		for _, fi := range report.FeatureImportance {
			fmt.Fprintf(w, "  %-12s %.4f\n", fi.Feature, fi.Drop)
		}
	}
	fmt.Fprintf(w, "\nArtifacts: %s\n", report.ModelDir)
	fmt.Fprintln(w, "========================")
}
