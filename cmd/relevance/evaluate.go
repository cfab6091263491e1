package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/repository/metadata"
	"github.com/kailas-cloud/relevance/internal/usecase/evaluation"
)

func evaluateCMD(a *app) *cobra.Command {
	var modelPath string
	var scoreArtifact, asJSON bool
	var foldWorkers int

	evaluate := &cobra.Command{
		Use:   "evaluate",
		Short: "Cross-validate the training procedure of a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateCorpus(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			path, err := resolveModel(a, modelPath)
			if err != nil {
				return err
			}
			arts, err := a.artifactStore()
			if err != nil {
				return err
			}

			svc := evaluation.New(a.corpusLoader(), arts,
				evaluation.WithFolds(a.cfg.Evaluation.Folds),
				evaluation.WithFoldWorkers(foldWorkers),
				evaluation.WithWorkers(a.cfg.Training.Workers),
			)
			res, err := svc.Evaluate(cmd.Context(), evaluation.Request{
				ArtifactPath:  path,
				RelevantDir:   a.cfg.Corpus.RelevantDir,
				IrrelevantDir: a.cfg.Corpus.IrrelevantDir,
				ScoreArtifact: scoreArtifact,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return jsonx.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			return printEvaluation(cmd.OutOrStdout(), res)
		},
	}
	evaluate.Flags().StringVar(&modelPath, "model", "", "artifact to evaluate (default: models.model_path, then the current model)")
	evaluate.Flags().BoolVar(&scoreArtifact, "score-artifact", false, "also score the stored artifact on the full corpus (optimistic)")
	evaluate.Flags().IntVar(&foldWorkers, "fold-workers", 1, "folds fitted concurrently")
	evaluate.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return evaluate
}

// resolveModel picks the explicit path, then the configured one, then the
// current-model pointer.
func resolveModel(a *app, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if a.cfg.Models.ModelPath != "" {
		return a.cfg.Models.ModelPath, nil
	}
	meta, err := metadata.New(a.cfg.Models.Dir).Current()
	if err != nil {
		return "", fmt.Errorf("resolve current model in %s: %w", a.cfg.Models.Dir, err)
	}
	return meta.ModelPath, nil
}
