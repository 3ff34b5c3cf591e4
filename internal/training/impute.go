package training

import (
	"sort"

	"titanic-survival/internal/features"
)

// defaultEmbarked is used only when no record carries a port at all.
const defaultEmbarked = "S"

// Imputation records the fill values learned from the dataset and how many
// records each one repaired.
type Imputation struct {
	AgeMedian      float64 `json:"age_median"`
	FareMedian     float64 `json:"fare_median"`
	EmbarkedMode   string  `json:"embarked_mode"`
	AgeFilled      int     `json:"age_filled"`
	FareFilled     int     `json:"fare_filled"`
	EmbarkedFilled int     `json:"embarked_filled"`
	CabinFilled    int     `json:"cabin_filled"`
}

// Impute fills missing values and returns the passengers with their labels.
// Age and Fare take the median of the known values, Embarked the most common
// port and Cabin the "Unknown" sentinel.
func Impute(records []Record) ([]features.Passenger, []int, Imputation) {
	var ages, fares []float64
	var ports []string
	for _, r := range records {
		if r.Age != nil {
			ages = append(ages, *r.Age)
		}
		if r.Fare != nil {
			fares = append(fares, *r.Fare)
		}
		if r.Embarked != "" {
			ports = append(ports, r.Embarked)
		}
	}

	imp := Imputation{
		AgeMedian:    median(ages),
		FareMedian:   median(fares),
		EmbarkedMode: mode(ports, defaultEmbarked),
	}

	passengers := make([]features.Passenger, len(records))
	labels := make([]int, len(records))
	for i, r := range records {
		p := features.Passenger{
			Pclass:   r.Pclass,
			Sex:      r.Sex,
			SibSp:    r.SibSp,
			Parch:    r.Parch,
			Embarked: r.Embarked,
			Cabin:    r.Cabin,
			Name:     r.Name,
		}
		if r.Age != nil {
			p.Age = *r.Age
		} else {
			p.Age = imp.AgeMedian
			imp.AgeFilled++
		}
		if r.Fare != nil {
			p.Fare = *r.Fare
		} else {
			p.Fare = imp.FareMedian
			imp.FareFilled++
		}
		if p.Embarked == "" {
			p.Embarked = imp.EmbarkedMode
			imp.EmbarkedFilled++
		}
		if p.Cabin == "" {
			p.Cabin = features.MissingCabin
			imp.CabinFilled++
		}
		passengers[i] = p
		labels[i] = r.Survived
	}
	return passengers, labels, imp
}

// median returns the middle value, averaging the two middle values for an
// even count. Empty input yields 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// mode returns the most frequent value; ties go to the smallest value.
func mode(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
