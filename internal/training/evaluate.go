package training

import (
	"fmt"
	"sort"
	"strings"
)

// ClassMetrics are the per-label scores of a classification report.
type ClassMetrics struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarises hold-out performance.
type Evaluation struct {
	Accuracy float64        `json:"accuracy"`
	Classes  []ClassMetrics `json:"classes"`
	Samples  int            `json:"samples"`
}

// Evaluate scores predictions against the true labels. Labels seen in
// either slice are reported; a score whose denominator is zero is 0.
func Evaluate(yTrue, yPred []int) (Evaluation, error) {
	if len(yTrue) != len(yPred) {
		return Evaluation{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Evaluation{}, fmt.Errorf("evaluate: no samples")
	}

	labelSet := make(map[int]struct{})
	for i := range yTrue {
		labelSet[yTrue[i]] = struct{}{}
		labelSet[yPred[i]] = struct{}{}
	}
	labels := make([]int, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	eval := Evaluation{
		Accuracy: float64(correct) / float64(len(yTrue)),
		Samples:  len(yTrue),
	}
	for _, label := range labels {
		var tp, fp, fn, support int
		for i := range yTrue {
			actual, predicted := yTrue[i] == label, yPred[i] == label
			switch {
			case actual && predicted:
				tp++
			case !actual && predicted:
				fp++
			case actual && !predicted:
				fn++
			}
			if actual {
				support++
			}
		}
		precision := ratio(tp, tp+fp)
		recall := ratio(tp, tp+fn)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		eval.Classes = append(eval.Classes, ClassMetrics{
			Label:     label,
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		})
	}
	return eval, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the evaluation as a plain-text classification report.
func (e Evaluation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range e.Classes {
		fmt.Fprintf(&b, "%12d %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "\n%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", e.Accuracy, e.Samples)
	return b.String()
}
