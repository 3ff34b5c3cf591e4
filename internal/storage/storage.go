// Package storage provides persistent data storage for the survival prediction
// service. It uses BoltDB as the underlying storage engine to keep a log of
// served predictions and a history of training runs.
//
// Keys are "<unixnano>_<id>" with the timestamp zero-padded, so cursor order
// is chronological and time-range scans are a single Seek.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"titanic-survival/internal/ml"
)

const (
	predictionsBucket  = "predictions"   // Bucket name for served predictions
	trainingRunsBucket = "training_runs" // Bucket name for training reports

	dbFile = "titanic-data.db"
)

// Store provides persistent storage using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(trainingRunsBucket)); err != nil {
			return fmt.Errorf("create training runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordPrediction stores a served prediction in the predictions bucket.
func (s *Store) RecordPrediction(event ml.PredictionEvent) error {
	return s.put(predictionsBucket, recordKey(event.Timestamp, event.ID), event)
}

// GetPredictions retrieves predictions served within [start, end], oldest
// first.
func (s *Store) GetPredictions(start, end time.Time) ([]ml.PredictionEvent, error) {
	return getRecordsInRange[ml.PredictionEvent](s, predictionsBucket, start, end)
}

// PredictionSummary aggregates served predictions.
type PredictionSummary struct {
	Total        int                   `json:"total"`
	Survived     int                   `json:"survived"`
	ByConfidence map[ml.Confidence]int `json:"by_confidence"`
	MeanProb     float64               `json:"mean_survival_probability"`
}

// SummarizePredictions aggregates the predictions served within [start, end].
func (s *Store) SummarizePredictions(start, end time.Time) (PredictionSummary, error) {
	events, err := s.GetPredictions(start, end)
	if err != nil {
		return PredictionSummary{}, err
	}

	summary := PredictionSummary{ByConfidence: make(map[ml.Confidence]int)}
	var probSum float64
	for _, ev := range events {
		summary.Total++
		if ev.Result.Survived {
			summary.Survived++
		}
		summary.ByConfidence[ev.Result.Confidence]++
		probSum += ev.Result.SurvivalProbability
	}
	if summary.Total > 0 {
		summary.MeanProb = probSum / float64(summary.Total)
	}
	return summary, nil
}

func (s *Store) put(bucket, key string, v any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", bucket, err)
		}
		return b.Put([]byte(key), data)
	})
}

// getRecordsInRange retrieves records from a bucket within a time range.
// It uses BoltDB cursors for efficient range scanning. Malformed records are
// skipped.
func getRecordsInRange[T any](s *Store, bucketName string, start, end time.Time) ([]T, error) {
	var records []T

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()

		startKey := []byte(timeKey(start))
		endKey := []byte(timeKey(end))

		for k, v := c.Seek(startKey); k != nil && compareKeys(timePart(k), endKey) <= 0; k, v = c.Next() {
			var record T
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

func timeKey(ts time.Time) string {
	return fmt.Sprintf("%020d", ts.UnixNano())
}

func recordKey(ts time.Time, id string) string {
	return timeKey(ts) + "_" + id
}

func timePart(key []byte) []byte {
	if i := bytes.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
