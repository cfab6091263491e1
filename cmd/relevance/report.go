package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/domain/score"
	"github.com/kailas-cloud/relevance/internal/repository/registry"
	"github.com/kailas-cloud/relevance/internal/usecase/evaluation"
	"github.com/kailas-cloud/relevance/internal/usecase/inference"
	"github.com/kailas-cloud/relevance/internal/usecase/stats"
	"github.com/kailas-cloud/relevance/internal/usecase/training"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTraining(w io.Writer, res *training.Result) error {
	m := res.Metadata
	fmt.Fprintf(w, "Model:    %s\n", res.ArtifactPath)
	fmt.Fprintf(w, "Metadata: %s\n", res.RecordPath)
	fmt.Fprintf(w, "Run:      %s\n", m.RunID)
	fmt.Fprintf(w, "Corpus:   %d relevant, %d irrelevant (%d total)\n",
		m.TrainingSize.Relevant, m.TrainingSize.Irrelevant, m.TrainingSize.Total)
	fmt.Fprintf(w, "Split:    %d train / %d test\n\n", res.Train.Total(), res.Test.Total())

	fmt.Fprintln(w, "Held-out performance:")
	if err := printScores(w, m.Performance); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Classification report:")
	return printReport(w, res.Report)
}

func printScores(w io.Writer, s score.Scores) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "  accuracy\t%.4f\n", s.Accuracy)
	fmt.Fprintf(tw, "  precision\t%.4f\n", s.Precision)
	fmt.Fprintf(tw, "  recall\t%.4f\n", s.Recall)
	fmt.Fprintf(tw, "  f1\t%.4f\n", s.F1)
	return tw.Flush()
}

func printReport(w io.Writer, r score.Report) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "\tprecision\trecall\tf1-score\tsupport")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(tw, "accuracy\t\t\t%.2f\t%d\n", r.Accuracy, r.MacroAvg.Support)
	for _, c := range []score.ClassReport{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	return tw.Flush()
}

func printEvaluation(w io.Writer, res *evaluation.Result) error {
	fmt.Fprintf(w, "Model:  %s\n", res.ArtifactPath)
	fmt.Fprintf(w, "Corpus: %d relevant, %d irrelevant\n\n", res.Dataset.Relevant, res.Dataset.Irrelevant)

	tw := newTable(w)
	fmt.Fprintln(tw, "FOLD\tTRAIN\tTEST\tACCURACY\tPRECISION\tRECALL\tF1")
	for _, f := range res.Folds {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			f.Index+1, f.Train.Total(), f.Test.Total(),
			f.Scores.Accuracy, f.Scores.Precision, f.Scores.Recall, f.Scores.F1)
	}
	mean, std := res.Summary.Mean, res.Summary.Std
	fmt.Fprintf(tw, "mean ± std\t\t\t%.4f ± %.4f\t%.4f ± %.4f\t%.4f ± %.4f\t%.4f ± %.4f\n",
		mean.Accuracy, std.Accuracy, mean.Precision, std.Precision,
		mean.Recall, std.Recall, mean.F1, std.F1)
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.ArtifactScores != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stored artifact on the full corpus (overlaps its training data, optimistic):")
		return printScores(w, *res.ArtifactScores)
	}
	return nil
}

func printDirResult(w io.Writer, res *inference.DirResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "FILE\tCLASSIFICATION\tCONFIDENCE\tTITLE")
	for _, r := range res.Results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\terror\t-\t%s\n", filepath.Base(r.Path), r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", filepath.Base(r.Path), r.Classification, r.Confidence, r.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := res.Summary
	_, err := fmt.Fprintf(w, "\n%d documents: %d relevant, %d irrelevant, %d failed (relevance ratio %.1f%%)\n",
		s.Total, s.Relevant, s.Irrelevant, s.Failed, s.RelevanceRatio*100)
	return err
}

func printModels(w io.Writer, list []model.Metadata, currentPath, productionPath string) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No trained models found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "MODEL\tTRAINED\tACCURACY\tPRECISION\tRECALL\tF1\tDOCS\tSTATUS")
	for _, m := range list {
		status := ""
		switch {
		case m.ModelPath == currentPath && m.ModelPath == productionPath:
			status = "current, production"
		case m.ModelPath == currentPath:
			status = "current"
		case m.ModelPath == productionPath:
			status = "production"
		}
		p := m.Performance
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%d\t%s\n",
			filepath.Base(m.ModelPath), m.TrainedOn.Local().Format(timeLayout),
			p.Accuracy, p.Precision, p.Recall, p.F1, m.TrainingSize.Total, status)
	}
	return tw.Flush()
}

func printRuns(w io.Writer, runs []registry.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "RUN\tTRAINED\tACCURACY\tF1\tDOCS\tMODEL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%d\t%s\n",
			r.RunID, r.TrainedOn.Local().Format(timeLayout),
			r.Performance.Accuracy, r.Performance.F1, r.Total, r.ModelPath)
	}
	return tw.Flush()
}

func printStats(w io.Writer, rep *stats.Report) error {
	c := rep.Counts
	fmt.Fprintf(w, "Documents: %d relevant, %d irrelevant (%.1f%% relevant)\n", c.Relevant, c.Irrelevant, rep.RelevantRatio*100)
	fmt.Fprintf(w, "Distinct words: %d\n", rep.Vocabulary)

	for _, section := range []struct {
		title string
		words []stats.Keyword
	}{
		{"Most relevant keywords:", rep.TopRelevant},
		{"Most irrelevant keywords:", rep.TopIrrelevant},
	} {
		fmt.Fprintf(w, "\n%s\n", section.title)
		tw := newTable(w)
		fmt.Fprintln(tw, "  WORD\tRELEVANT\tIRRELEVANT\tRELEVANT SHARE")
		for _, k := range section.words {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%.2f\n", k.Term, k.Relevant, k.Irrelevant, k.RelevantShare)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
