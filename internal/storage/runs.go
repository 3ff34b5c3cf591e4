package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"titanic-survival/internal/training"
)

// StoreTrainingRun stores a training report keyed by its start time.
func (s *Store) StoreTrainingRun(report training.Report) error {
	return s.put(trainingRunsBucket, recordKey(report.StartedAt, report.ID), report)
}

// LatestTrainingRun returns the most recent training report. The boolean is
// false when no run has been stored.
func (s *Store) LatestTrainingRun() (training.Report, bool, error) {
	var report training.Report
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(trainingRunsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if err := json.Unmarshal(v, &report); err != nil {
				continue
			}
			found = true
			return nil
		}
		return nil
	})

	return report, found, err
}

// ListTrainingRuns returns up to limit reports, newest first. A limit of zero
// or less returns all of them.
func (s *Store) ListTrainingRuns(limit int) ([]training.Report, error) {
	var reports []training.Report

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(trainingRunsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(reports) >= limit {
				break
			}
			var report training.Report
			if err := json.Unmarshal(v, &report); err != nil {
				continue
			}
			reports = append(reports, report)
		}
		return nil
	})

	return reports, err
}

var predictionCSVHeader = []string{
	"timestamp", "id", "pclass", "sex", "age", "sibsp", "parch", "fare", "embarked",
	"cabin", "name", "survived", "survival_probability", "confidence",
}

// ExportPredictionsCSV writes the predictions served within [start, end] as
// CSV, oldest first.
func (s *Store) ExportPredictionsCSV(w io.Writer, start, end time.Time) (int, error) {
	events, err := s.GetPredictions(start, end)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(predictionCSVHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		p := ev.Passenger
		row := []string{
			ev.Timestamp.Format(time.RFC3339Nano),
			ev.ID,
			strconv.Itoa(p.Pclass),
			p.Sex,
			strconv.FormatFloat(p.Age, 'f', -1, 64),
			strconv.Itoa(p.SibSp),
			strconv.Itoa(p.Parch),
			strconv.FormatFloat(p.Fare, 'f', -1, 64),
			p.Embarked,
			p.Cabin,
			p.Name,
			strconv.FormatBool(ev.Result.Survived),
			strconv.FormatFloat(ev.Result.SurvivalProbability, 'f', -1, 64),
			string(ev.Result.Confidence),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return len(events), cw.Error()
}
