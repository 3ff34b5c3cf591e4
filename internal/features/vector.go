package features

import (
	"errors"
	"fmt"
)

// Column names. They are persisted in the feature_names artifact, so changing
// one invalidates every trained model.
const (
	ColPclass     = "Pclass"
	ColSex        = "Sex"
	ColAge        = "Age"
	ColSibSp      = "SibSp"
	ColParch      = "Parch"
	ColFare       = "Fare"
	ColEmbarked   = "Embarked"
	ColTitle      = "Title"
	ColFamilySize = "FamilySize"
	ColIsAlone    = "IsAlone"
	ColDeck       = "Deck"
)

var (
	canonicalOrder = []string{
		ColPclass, ColSex, ColAge, ColSibSp, ColParch, ColFare,
		ColEmbarked, ColTitle, ColFamilySize, ColIsAlone, ColDeck,
	}
	categoricalColumns = []string{ColSex, ColEmbarked, ColTitle, ColDeck}
	numericColumns     = []string{ColAge, ColFare, ColFamilySize}
)

// ErrUnknownColumn is returned when a feature ordering names a column this
// package cannot produce.
var ErrUnknownColumn = errors.New("unknown feature column")

// CanonicalOrder returns the feature layout used for every vector.
func CanonicalOrder() []string { return append([]string(nil), canonicalOrder...) }

// CategoricalColumns returns the columns that go through the encoder table.
func CategoricalColumns() []string { return append([]string(nil), categoricalColumns...) }

// NumericColumns returns the columns that go through the scaler.
func NumericColumns() []string { return append([]string(nil), numericColumns...) }

// Category returns the string value of a categorical column.
func (r Row) Category(column string) (string, bool) {
	switch column {
	case ColSex:
		return r.Sex, true
	case ColEmbarked:
		return r.Embarked, true
	case ColTitle:
		return r.Title, true
	case ColDeck:
		return r.Deck, true
	}
	return "", false
}

// Number returns the raw numeric value of a non-categorical column.
func (r Row) Number(column string) (float64, bool) {
	switch column {
	case ColPclass:
		return float64(r.Pclass), true
	case ColAge:
		return r.Age, true
	case ColSibSp:
		return float64(r.SibSp), true
	case ColParch:
		return float64(r.Parch), true
	case ColFare:
		return r.Fare, true
	case ColFamilySize:
		return float64(r.FamilySize), true
	case ColIsAlone:
		if r.IsAlone {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// FallbackFunc is told about every categorical value that had to be replaced
// by its column's fallback code.
type FallbackFunc func(column, value string)

// Vectorizer lays out encoded and scaled rows in a fixed column order.
// It is read-only and safe for concurrent use.
type Vectorizer struct {
	encoders *EncoderTable
	scaler   *Scaler
	order    []string
}

// NewVectorizer checks that every column of order can be produced.
func NewVectorizer(encoders *EncoderTable, scaler *Scaler, order []string) (*Vectorizer, error) {
	if encoders == nil || scaler == nil {
		return nil, errors.New("vectorizer: encoders and scaler are required")
	}
	var probe Row
	for _, col := range order {
		if _, ok := probe.Category(col); ok {
			continue
		}
		if _, ok := probe.Number(col); ok {
			continue
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	return &Vectorizer{
		encoders: encoders,
		scaler:   scaler,
		order:    append([]string(nil), order...),
	}, nil
}

// Order returns the column layout of produced vectors.
func (v *Vectorizer) Order() []string { return append([]string(nil), v.order...) }

// Transform encodes and scales row. onFallback may be nil.
func (v *Vectorizer) Transform(row Row, onFallback FallbackFunc) []float64 {
	out := make([]float64, len(v.order))
	for i, col := range v.order {
		if value, ok := row.Category(col); ok {
			code, fellBack := v.encoders.EncodeObserved(col, value)
			if fellBack && onFallback != nil {
				onFallback(col, value)
			}
			out[i] = float64(code)
			continue
		}
		x, _ := row.Number(col)
		out[i] = v.scaler.TransformValue(col, x)
	}
	return out
}
