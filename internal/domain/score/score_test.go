package score

import (
	"math"
	"testing"

	"github.com/kailas-cloud/relevance/internal/domain"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestNewConfusion(t *testing.T) {
	r, i := domain.Relevant, domain.Irrelevant
	truth := []domain.Label{r, r, r, i, i, i}
	pred := []domain.Label{r, r, i, r, i, i}

	c, err := NewConfusion(truth, pred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Confusion{TP: 2, FN: 1, FP: 1, TN: 2}
	if c != want {
		t.Fatalf("confusion = %+v, want %+v", c, want)
	}

	s := c.Scores()
	if !approx(s.Accuracy, 4.0/6.0) {
		t.Errorf("accuracy = %v", s.Accuracy)
	}
	if !approx(s.Precision, 2.0/3.0) || !approx(s.Recall, 2.0/3.0) || !approx(s.F1, 2.0/3.0) {
		t.Errorf("scores = %+v", s)
	}
}

func TestNewConfusion_LengthMismatch(t *testing.T) {
	if _, err := NewConfusion([]domain.Label{domain.Relevant}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestScores_ZeroDivision(t *testing.T) {
	// Nothing predicted relevant and nothing actually relevant.
	c := Confusion{TN: 4}
	s := c.Scores()
	if s.Precision != 0 || s.Recall != 0 || s.F1 != 0 {
		t.Errorf("expected zero precision/recall/f1, got %+v", s)
	}
	if s.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", s.Accuracy)
	}

	if got := (Confusion{}).Scores(); got != (Scores{}) {
		t.Errorf("empty confusion scores = %+v", got)
	}
}

func TestReport(t *testing.T) {
	c := Confusion{TP: 8, FN: 2, FP: 1, TN: 9}
	rep := c.Report()

	if len(rep.Classes) != 2 {
		t.Fatalf("got %d classes", len(rep.Classes))
	}
	irr, rel := rep.Classes[0], rep.Classes[1]
	if irr.Name != "irrelevant" || rel.Name != "relevant" {
		t.Errorf("class order = %q, %q", irr.Name, rel.Name)
	}
	if irr.Support != 10 || rel.Support != 10 {
		t.Errorf("support = %d/%d", irr.Support, rel.Support)
	}
	if !approx(rel.Precision, 8.0/9.0) || !approx(rel.Recall, 0.8) {
		t.Errorf("relevant row = %+v", rel)
	}
	if !approx(irr.Precision, 9.0/11.0) || !approx(irr.Recall, 0.9) {
		t.Errorf("irrelevant row = %+v", irr)
	}
	if !approx(rep.Accuracy, 17.0/20.0) {
		t.Errorf("accuracy = %v", rep.Accuracy)
	}
	if !approx(rep.MacroAvg.Recall, 0.85) {
		t.Errorf("macro recall = %v", rep.MacroAvg.Recall)
	}
	// Balanced support: weighted equals macro.
	if !approx(rep.WeightedAvg.F1, rep.MacroAvg.F1) {
		t.Errorf("weighted f1 %v != macro f1 %v", rep.WeightedAvg.F1, rep.MacroAvg.F1)
	}
}

func TestSummarize(t *testing.T) {
	folds := []Scores{
		{Accuracy: 1.0, Precision: 1.0, Recall: 0.5, F1: 0.6},
		{Accuracy: 0.8, Precision: 1.0, Recall: 0.7, F1: 0.8},
	}
	sum := Summarize(folds)

	if !approx(sum.Mean.Accuracy, 0.9) || !approx(sum.Std.Accuracy, 0.1) {
		t.Errorf("accuracy mean/std = %v/%v", sum.Mean.Accuracy, sum.Std.Accuracy)
	}
	if !approx(sum.Mean.Precision, 1.0) || sum.Std.Precision != 0 {
		t.Errorf("precision mean/std = %v/%v", sum.Mean.Precision, sum.Std.Precision)
	}
	if !approx(sum.Mean.Recall, 0.6) || !approx(sum.Std.Recall, 0.1) {
		t.Errorf("recall mean/std = %v/%v", sum.Mean.Recall, sum.Std.Recall)
	}

	if got := Summarize(nil); got != (Summary{}) {
		t.Errorf("empty summary = %+v", got)
	}
}
