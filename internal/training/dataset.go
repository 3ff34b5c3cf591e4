// Package training turns the labelled passenger CSV into published model
// artifacts. It loads and imputes the dataset, derives features with the
// same code the serving path uses, fits the encoders, scaler and forest,
// evaluates on a stratified hold-out split and writes the artifacts.
package training

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// DefaultDatasetURL is the public copy of the Kaggle training set.
const DefaultDatasetURL = "https://raw.githubusercontent.com/datasciencedojo/datasets/master/titanic.csv"

// ErrEmptyDataset is returned when the dataset has no usable rows.
var ErrEmptyDataset = errors.New("dataset has no usable records")

// Record is one labelled row of the dataset. Nil pointers mark missing
// numeric values.
type Record struct {
	PassengerID int
	Survived    int
	Pclass      int
	Name        string
	Sex         string
	Age         *float64
	SibSp       int
	Parch       int
	Fare        *float64
	Cabin       string
	Embarked    string
}

var requiredColumns = []string{"Survived", "Pclass", "Sex", "Age", "SibSp", "Parch", "Fare", "Embarked"}

// LoadCSV reads the dataset at path.
func LoadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return records, nil
}

// ReadCSV parses the Kaggle Titanic layout. Columns are located by header
// name; Name, Cabin and PassengerId are optional. Rows that cannot be parsed
// are skipped with a warning.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var records []Record
	line := 1
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parseRecord(row, colIndex)
		if err != nil {
			skipped++
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed dataset row")
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("loaded", len(records)).Msg("Dataset rows skipped")
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}

func parseRecord(row []string, colIndex map[string]int) (Record, error) {
	field := func(name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec Record
	var err error

	if rec.Survived, err = cast.ToIntE(field("Survived")); err != nil {
		return rec, fmt.Errorf("survived: %w", err)
	}
	if rec.Survived != 0 && rec.Survived != 1 {
		return rec, fmt.Errorf("survived must be 0 or 1, got %d", rec.Survived)
	}
	if rec.Pclass, err = cast.ToIntE(field("Pclass")); err != nil {
		return rec, fmt.Errorf("pclass: %w", err)
	}
	if rec.SibSp, err = cast.ToIntE(field("SibSp")); err != nil {
		return rec, fmt.Errorf("sibsp: %w", err)
	}
	if rec.Parch, err = cast.ToIntE(field("Parch")); err != nil {
		return rec, fmt.Errorf("parch: %w", err)
	}
	if rec.Age, err = optionalFloat(field("Age")); err != nil {
		return rec, fmt.Errorf("age: %w", err)
	}
	if rec.Fare, err = optionalFloat(field("Fare")); err != nil {
		return rec, fmt.Errorf("fare: %w", err)
	}
	if id := field("PassengerId"); id != "" {
		rec.PassengerID = cast.ToInt(id)
	}

	rec.Sex = field("Sex")
	if rec.Sex == "" {
		return rec, errors.New("sex is empty")
	}
	rec.Name = field("Name")
	rec.Cabin = field("Cabin")
	rec.Embarked = field("Embarked")
	return rec, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Download fetches url into dest, creating the parent directory. The body is
// written to a temporary file first so an interrupted download never leaves
// a truncated dataset behind.
func Download(ctx context.Context, url, dest string, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	tmp := dest + ".part"

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	log.Info().Str("url", url).Str("dest", dest).Msg("Downloading dataset")
	resp, err := client.R().
		SetContext(ctx).
		SetOutput(tmp).
		Get(url)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("download dataset: %w", err)
	}
	if resp.IsError() {
		os.Remove(tmp)
		return fmt.Errorf("download dataset: unexpected status %s", resp.Status())
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish dataset: %w", err)
	}
	log.Info().Str("dest", dest).Int64("bytes", resp.Size()).Msg("Dataset downloaded")
	return nil
}
