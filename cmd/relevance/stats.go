package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/usecase/stats"
)

func statsCMD(a *app) *cobra.Command {
	var top, minCount int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus balance and the most discriminative keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateCorpus(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			svc := stats.New(a.corpusLoader(), stats.WithTop(top), stats.WithMinOccurrences(minCount))
			rep, err := svc.Compute(cmd.Context(), a.cfg.Corpus.RelevantDir, a.cfg.Corpus.IrrelevantDir)
			if err != nil {
				return err
			}
			if asJSON {
				return jsonx.NewEncoder(cmd.OutOrStdout()).Encode(rep)
			}
			return printStats(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntVar(&top, "top", stats.DefaultTop, "keywords per label")
	cmd.Flags().IntVar(&minCount, "min-count", stats.DefaultMinOccurrences, "minimum occurrences for a keyword")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
