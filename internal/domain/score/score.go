package score

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/relevance/internal/domain"
)

// Scores holds binary classification metrics with relevant as the positive class.
type Scores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Confusion is a binary confusion matrix.
type Confusion struct {
	TP int
	FP int
	TN int
	FN int
}

// NewConfusion counts outcomes of predicted against true labels.
func NewConfusion(truth, predicted []domain.Label) (Confusion, error) {
	if len(truth) != len(predicted) {
		return Confusion{}, fmt.Errorf("label length mismatch: %d truth vs %d predicted", len(truth), len(predicted))
	}
	var c Confusion
	for i, y := range truth {
		p := predicted[i]
		switch {
		case y == domain.Relevant && p == domain.Relevant:
			c.TP++
		case y == domain.Irrelevant && p == domain.Relevant:
			c.FP++
		case y == domain.Irrelevant && p == domain.Irrelevant:
			c.TN++
		default:
			c.FN++
		}
	}
	return c, nil
}

// Total returns the number of counted predictions.
func (c Confusion) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Scores computes the binary metrics. Undefined ratios (zero denominators) are 0.
func (c Confusion) Scores() Scores {
	precision := ratio(c.TP, c.TP+c.FP)
	recall := ratio(c.TP, c.TP+c.FN)
	return Scores{
		Accuracy:  ratio(c.TP+c.TN, c.Total()),
		Precision: precision,
		Recall:    recall,
		F1:        harmonic(precision, recall),
	}
}

// ClassReport holds one row of a classification report.
type ClassReport struct {
	Name      string  `json:"name"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a per-class breakdown with macro and support-weighted averages.
type Report struct {
	Classes     []ClassReport `json:"classes"`
	Accuracy    float64       `json:"accuracy"`
	MacroAvg    ClassReport   `json:"macroAvg"`
	WeightedAvg ClassReport   `json:"weightedAvg"`
}

// Report builds the classification report, irrelevant first.
func (c Confusion) Report() Report {
	irrP := ratio(c.TN, c.TN+c.FN)
	irrR := ratio(c.TN, c.TN+c.FP)
	relP := ratio(c.TP, c.TP+c.FP)
	relR := ratio(c.TP, c.TP+c.FN)

	classes := []ClassReport{
		{Name: domain.Irrelevant.String(), Precision: irrP, Recall: irrR, F1: harmonic(irrP, irrR), Support: c.TN + c.FP},
		{Name: domain.Relevant.String(), Precision: relP, Recall: relR, F1: harmonic(relP, relR), Support: c.TP + c.FN},
	}

	total := c.Total()
	macro := ClassReport{Name: "macro avg", Support: total}
	weighted := ClassReport{Name: "weighted avg", Support: total}
	for _, cr := range classes {
		macro.Precision += cr.Precision / float64(len(classes))
		macro.Recall += cr.Recall / float64(len(classes))
		macro.F1 += cr.F1 / float64(len(classes))
		if total > 0 {
			w := float64(cr.Support) / float64(total)
			weighted.Precision += cr.Precision * w
			weighted.Recall += cr.Recall * w
			weighted.F1 += cr.F1 * w
		}
	}

	return Report{
		Classes:     classes,
		Accuracy:    ratio(c.TP+c.TN, total),
		MacroAvg:    macro,
		WeightedAvg: weighted,
	}
}

// Summary aggregates scores across cross-validation folds.
type Summary struct {
	Mean Scores `json:"mean"`
	Std  Scores `json:"std"`
}

// Summarize returns the mean and population standard deviation of each metric.
func Summarize(folds []Scores) Summary {
	if len(folds) == 0 {
		return Summary{}
	}
	pick := []func(*Scores) *float64{
		func(s *Scores) *float64 { return &s.Accuracy },
		func(s *Scores) *float64 { return &s.Precision },
		func(s *Scores) *float64 { return &s.Recall },
		func(s *Scores) *float64 { return &s.F1 },
	}

	var sum Summary
	n := float64(len(folds))
	for _, field := range pick {
		var mean float64
		for i := range folds {
			mean += *field(&folds[i])
		}
		mean /= n

		var variance float64
		for i := range folds {
			d := *field(&folds[i]) - mean
			variance += d * d
		}
		*field(&sum.Mean) = mean
		*field(&sum.Std) = math.Sqrt(variance / n)
	}
	return sum
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func harmonic(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
