package features

import (
	"fmt"
	"math"
	"sort"
)

// ScaleParams standardizes one column as (x - Mean) / Scale.
type ScaleParams struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Scaler holds the standardization parameters fit on the training matrix.
type Scaler struct {
	Params map[string]ScaleParams `json:"params"`
}

// FitScaler computes the mean and population standard deviation of every
// column. A column with zero variance gets Scale 1.
func FitScaler(columns map[string][]float64) *Scaler {
	s := &Scaler{Params: make(map[string]ScaleParams, len(columns))}
	for name, values := range columns {
		s.Params[name] = fitColumn(values)
	}
	return s
}

func fitColumn(values []float64) ScaleParams {
	if len(values) == 0 {
		return ScaleParams{Mean: 0, Scale: 1}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(values)))
	if std == 0 {
		std = 1
	}
	return ScaleParams{Mean: mean, Scale: std}
}

// Columns returns the scaled column names, sorted.
func (s *Scaler) Columns() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TransformValue scales x with the parameters of column. Columns the scaler
// was not fit on pass through unchanged.
func (s *Scaler) TransformValue(column string, x float64) float64 {
	p, ok := s.Params[column]
	if !ok {
		return x
	}
	return (x - p.Mean) / p.Scale
}

// Transform returns a scaled copy of row.
func (s *Scaler) Transform(row map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(row))
	for name, x := range row {
		out[name] = s.TransformValue(name, x)
	}
	return out
}

// Validate reports parameters that would make Transform produce NaN or Inf.
func (s *Scaler) Validate() error {
	for _, name := range s.Columns() {
		p := s.Params[name]
		if math.IsNaN(p.Mean) || math.IsInf(p.Mean, 0) {
			return fmt.Errorf("column %s: invalid mean %v", name, p.Mean)
		}
		if p.Scale <= 0 || math.IsNaN(p.Scale) || math.IsInf(p.Scale, 0) {
			return fmt.Errorf("column %s: invalid scale %v", name, p.Scale)
		}
	}
	return nil
}
