package stats

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
)

type mockCorpus struct {
	ds  *dataset.Dataset
	err error
}

func (m *mockCorpus) Load(_ context.Context, _, _ string) (*dataset.Dataset, error) {
	return m.ds, m.err
}

func corpus() *dataset.Dataset {
	var ex []dataset.Example
	for range 6 {
		ex = append(ex, dataset.Example{Text: "Invest in the market", Label: domain.Relevant})
	}
	for range 5 {
		ex = append(ex, dataset.Example{Text: "Weather in the city, the market closed", Label: domain.Irrelevant})
	}
	ex = append(ex, dataset.Example{Text: "rare word", Label: domain.Relevant})
	return dataset.New(ex)
}

func TestCompute(t *testing.T) {
	rep, err := New(&mockCorpus{ds: corpus()}, WithTop(3)).Compute(context.Background(), "r", "i")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if rep.Counts != (dataset.Counts{Relevant: 7, Irrelevant: 5}) {
		t.Errorf("counts = %+v", rep.Counts)
	}
	if rep.RelevantRatio != 7.0/12.0 {
		t.Errorf("ratio = %v", rep.RelevantRatio)
	}

	if len(rep.TopRelevant) != 3 {
		t.Fatalf("top relevant = %+v", rep.TopRelevant)
	}
	if rep.TopRelevant[0].Term != "invest" || rep.TopRelevant[0].RelevantShare != 1 {
		t.Errorf("top relevant[0] = %+v", rep.TopRelevant[0])
	}
	if rep.TopRelevant[1].Term != "in" || rep.TopRelevant[2].Term != "market" {
		t.Errorf("tie order = %s, %s", rep.TopRelevant[1].Term, rep.TopRelevant[2].Term)
	}
	// weather, city and closed tie on share and count; term order decides.
	if rep.TopIrrelevant[0].Term != "city" || rep.TopIrrelevant[0].RelevantShare != 0 {
		t.Errorf("top irrelevant[0] = %+v", rep.TopIrrelevant[0])
	}

	for _, k := range append(rep.TopRelevant, rep.TopIrrelevant...) {
		if k.Total() < DefaultMinOccurrences {
			t.Errorf("%q has %d occurrences, below the minimum", k.Term, k.Total())
		}
		if strings.ContainsAny(k.Term, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			t.Errorf("%q not lowercased", k.Term)
		}
		if k.Term == "rare" || k.Term == "word" {
			t.Errorf("rare term %q ranked", k.Term)
		}
	}
}

func TestCompute_MixedTermRanking(t *testing.T) {
	rep, err := New(&mockCorpus{ds: corpus()}).Compute(context.Background(), "r", "i")
	if err != nil {
		t.Fatal(err)
	}
	// "market": 6 relevant, 5 irrelevant occurrences.
	for _, k := range rep.TopRelevant {
		if k.Term == "market" {
			if k.Relevant != 6 || k.Irrelevant != 5 || k.RelevantShare != 6.0/11.0 {
				t.Errorf("market = %+v", k)
			}
			return
		}
	}
	t.Error("market missing from ranking")
}

func TestCompute_Errors(t *testing.T) {
	if _, err := New(&mockCorpus{err: errors.New("down")}).Compute(context.Background(), "r", "i"); err == nil {
		t.Error("expected corpus error")
	}

	rep, err := New(&mockCorpus{ds: dataset.New(nil)}).Compute(context.Background(), "r", "i")
	if err != nil {
		t.Fatalf("empty corpus: %v", err)
	}
	if rep.RelevantRatio != 0 || len(rep.TopRelevant) != 0 {
		t.Errorf("empty report = %+v", rep)
	}
}
