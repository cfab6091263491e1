package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/repository/metadata"
	"github.com/kailas-cloud/relevance/internal/usecase/training"
)

func trainCMD(a *app) *cobra.Command {
	var relevantDir, irrelevantDir string
	var asJSON bool

	train := &cobra.Command{
		Use:   "train",
		Short: "Train a model on the labeled corpus and make it current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if relevantDir != "" {
				a.cfg.Corpus.RelevantDir = relevantDir
			}
			if irrelevantDir != "" {
				a.cfg.Corpus.IrrelevantDir = irrelevantDir
			}
			if err := a.cfg.ValidateCorpus(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			arts, err := a.artifactStore()
			if err != nil {
				return err
			}
			settings := training.Settings{
				Pipeline:     a.pipelineConfig(),
				Seed:         *a.cfg.Training.Seed,
				TestFraction: a.cfg.Training.TestFraction,
			}
			opts := []training.Option{training.WithWorkers(a.cfg.Training.Workers)}

			reg := a.publisher(ctx)
			// Pass nil interface (not typed nil pointer!) when no registry is configured.
			if reg != nil {
				opts = append(opts, training.WithPublisher(reg))
			}

			svc := training.New(a.corpusLoader(), arts, metadata.New(a.cfg.Models.Dir), settings, opts...)
			res, err := svc.Train(ctx, training.Request{
				RelevantDir:   a.cfg.Corpus.RelevantDir,
				IrrelevantDir: a.cfg.Corpus.IrrelevantDir,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return jsonx.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			return printTraining(cmd.OutOrStdout(), res)
		},
	}
	train.Flags().StringVar(&relevantDir, "relevant", "", "relevant documents directory (overrides corpus.relevant_dir)")
	train.Flags().StringVar(&irrelevantDir, "irrelevant", "", "irrelevant documents directory (overrides corpus.irrelevant_dir)")
	train.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return train
}

